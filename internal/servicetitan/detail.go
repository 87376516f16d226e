package servicetitan

import (
	"context"
	"strings"
)

// FetchJobDetail assembles the enrichment bundle for a job: customer name and
// phone, service address, earliest appointment time, and the name of the
// first assigned technician. Each sub-fetch is best-effort; a failure leaves
// the corresponding field empty so intake can still create a minimal lead.
func (c *Client) FetchJobDetail(ctx context.Context, job *Job) *JobDetail {
	detail := &JobDetail{}

	if customer, err := c.CustomerByID(ctx, job.CustomerID); err == nil {
		detail.CustomerName = customer.Name
	} else {
		c.log.UpstreamError("enrich_customer", err)
	}

	if contacts, err := c.CustomerContacts(ctx, job.CustomerID); err == nil {
		detail.CustomerPhone = pickPhone(contacts)
	} else {
		c.log.UpstreamError("enrich_customer_contacts", err)
	}

	if location, err := c.LocationByID(ctx, job.LocationID); err == nil {
		detail.Address = location.Address.FormatAddress()
	} else {
		c.log.UpstreamError("enrich_location", err)
	}

	appointments, err := c.AppointmentsForJob(ctx, job.ID)
	if err != nil {
		c.log.UpstreamError("enrich_appointments", err)
		return detail
	}

	for _, appt := range appointments {
		if appt.Start.IsZero() {
			continue
		}
		if detail.ScheduledAt.IsZero() || appt.Start.Before(detail.ScheduledAt) {
			detail.ScheduledAt = appt.Start.Time
		}
	}

	if len(appointments) == 0 {
		return detail
	}
	assignments, err := c.AssignmentsForAppointment(ctx, appointments[0].ID)
	if err != nil {
		c.log.UpstreamError("enrich_assignments", err)
		return detail
	}
	for _, assignment := range assignments {
		if assignment.TechnicianName != "" {
			detail.TechnicianName = assignment.TechnicianName
			break
		}
	}
	return detail
}

// Preferred contact types, most specific first.
var phoneContactTypes = []string{"mobilephone", "phone"}

func pickPhone(contacts []CustomerContact) string {
	for _, wanted := range phoneContactTypes {
		for _, contact := range contacts {
			if strings.EqualFold(contact.Type, wanted) && contact.Value != "" {
				return contact.Value
			}
		}
	}
	return ""
}
