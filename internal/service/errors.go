package service

import "fmt"

// UnsupportedEventError reports a webhook type with no rule in the
// transition table. The HTTP layer returns non-2xx so the provider retries
// and eventually gives up per its redelivery policy.
type UnsupportedEventError struct {
	EventType string
}

func (e *UnsupportedEventError) Error() string {
	return fmt.Sprintf("Unsupported webhook type: %s", e.EventType)
}

// MissingFieldError reports a required payload field that is absent or
// unresolvable for the given event type.
type MissingFieldError struct {
	Field     string
	EventType string
	NotFound  bool
	Deferred  bool
}

func (e *MissingFieldError) Error() string {
	kind := fmt.Sprintf("'%s'", e.EventType)
	if e.Deferred {
		kind = fmt.Sprintf("the deferred '%s'", e.EventType)
	}
	if e.NotFound {
		return fmt.Sprintf("Missing required data. '%s' is invalid or not found for %s event.", e.Field, kind)
	}
	return fmt.Sprintf("Missing required data. '%s' is missing for %s event.", e.Field, kind)
}

// OrderNotFoundError reports that no order matches the event's order reference.
type OrderNotFoundError struct {
	Reference string
}

func (e *OrderNotFoundError) Error() string {
	return fmt.Sprintf("could not find order for reference %s", e.Reference)
}
