package utils

import (
	"fmt"
	"strings"
	"time"

	corev2 "github.com/sensu/core/v2"
)

// EventStatus names the check status of event, RESOLVED for a check that
// just went back to OK.
func EventStatus(event *corev2.Event) string {
	if event.IsResolution() {
		return "RESOLVED"
	}
	return StatusName(int(event.Check.Status))
}

// EventSubject is the one line summary of event used by the notification handlers.
func EventSubject(event *corev2.Event) string {
	return fmt.Sprintf("%s %s/%s", EventStatus(event), event.Entity.Name, event.Check.Name)
}

// EventBody is the plain text description of event.
func EventBody(event *corev2.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Entity: %s\n", event.Entity.Name)
	fmt.Fprintf(&b, "Namespace: %s\n", event.Entity.Namespace)
	fmt.Fprintf(&b, "Check: %s\n", event.Check.Name)
	fmt.Fprintf(&b, "Status: %s\n", EventStatus(event))
	fmt.Fprintf(&b, "Occurrences: %d\n", event.Check.Occurrences)
	if event.Check.Executed > 0 {
		fmt.Fprintf(&b, "Executed: %s\n", time.Unix(event.Check.Executed, 0).UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "\n%s\n", strings.TrimSpace(event.Check.Output))
	return b.String()
}
