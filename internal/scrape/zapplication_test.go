package scrape

import (
	"testing"
)

func TestZappEventIDs(t *testing.T) {
	body := []byte(`
<a href="/event-info.php?ID=11021">Fair One</a>
<a href="event-info.php?ID=11022">Fair Two</a>
<a href="/event-info.php?ID=11021">Fair One again</a>
<a href="/other.php?ID=99">not an event</a>`)

	ids := zappEventIDs(body)
	if len(ids) != 2 {
		t.Fatalf("got %v, want two unique ids", ids)
	}
	if ids[0] != "11021" || ids[1] != "11022" {
		t.Errorf("ids = %v, want listing order preserved", ids)
	}
}

const zappEventPage = `
<html><head><title>ZAPP - Event Information - Cherry Creek Arts Festival</title></head>
<body>
<script>
_phpVueData.eventGeneralInfo = "<strong>Event Dates: July 4-6, 2026<\/strong>\r\nJuried fine art festival.";
</script>
<div :location="Denver, CO"></div>
Application Deadline: January 31, 2026
Application Fee: $45.00
Booth Fee: $675
</body></html>`

func TestParseZappEvent(t *testing.T) {
	raw := parseZappEvent(zappEventPage, "11021", "https://www.zapplication.org/event-info.php?ID=11021")
	if raw == nil {
		t.Fatal("expected a record")
	}

	if raw.Title != "Cherry Creek Arts Festival" {
		t.Errorf("title = %q", raw.Title)
	}
	if raw.PlatformID != "11021" {
		t.Errorf("platform id = %q", raw.PlatformID)
	}
	if raw.Deadline != "January 31, 2026" {
		t.Errorf("deadline = %q", raw.Deadline)
	}
	if raw.Fee != "$45.00" {
		t.Errorf("application fee = %q", raw.Fee)
	}
	if raw.Extra["booth_fee"] != "$675" {
		t.Errorf("booth fee = %v", raw.Extra["booth_fee"])
	}
	if raw.Extra["event_dates"] != "July 4-6, 2026" {
		t.Errorf("event dates = %v", raw.Extra["event_dates"])
	}
	if raw.Location != "Denver, CO" {
		t.Errorf("location = %q", raw.Location)
	}
}

func TestParseZappEventNoTitle(t *testing.T) {
	if raw := parseZappEvent("<html><body>Application period is closed</body></html>", "1", "https://x"); raw != nil {
		t.Errorf("pages without a title must be skipped, got %+v", raw)
	}
}

func TestParseZappEventUnrenderedLocation(t *testing.T) {
	page := `<html><head><title>ZAPP - Event Information - Some Fair</title></head>
<body><div :location="{{ event.location }}"></div></body></html>`
	raw := parseZappEvent(page, "2", "https://x")
	if raw == nil {
		t.Fatal("expected a record")
	}
	if raw.Location != "" {
		t.Errorf("unrendered Vue template must not leak into location, got %q", raw.Location)
	}
}
