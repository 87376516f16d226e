package servicetitan

import (
	"context"
	"net/url"
	"time"
)

// FetchRecentJobs returns every job modified on or after the given cutoff,
// walking pagination up to the configured page ceiling.
func (c *Client) FetchRecentJobs(ctx context.Context, since time.Time) ([]Job, error) {
	query := url.Values{}
	query.Set("modifiedOnOrAfter", since.UTC().Format(time.RFC3339))
	return getAll[Job](ctx, c, "fetch_recent_jobs", c.tenantPath("jpm/v2", "jobs"), query)
}

// JobByID fetches a single job.
func (c *Client) JobByID(ctx context.Context, jobID int64) (*Job, error) {
	var job Job
	path := c.tenantPath("jpm/v2", "jobs") + "/" + formatID(jobID)
	if err := c.get(ctx, "fetch_job", path, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// JobsForCustomer returns the customer's jobs created on or after the cutoff.
// A zero cutoff fetches without a date filter.
func (c *Client) JobsForCustomer(ctx context.Context, customerID int64, createdAfter time.Time) ([]Job, error) {
	query := url.Values{}
	query.Set("customerId", formatID(customerID))
	if !createdAfter.IsZero() {
		query.Set("createdOnOrAfter", createdAfter.UTC().Format(time.RFC3339))
	}
	return getAll[Job](ctx, c, "fetch_customer_jobs", c.tenantPath("jpm/v2", "jobs"), query)
}

// FindFollowUpJob locates the sales job the office opened against the same
// customer after a technician turned over a lead. It returns the newest job
// of the sales job type at that customer, excluding the originating job, or
// nil when none exists yet.
func (c *Client) FindFollowUpJob(ctx context.Context, customerID, excludeJobID, salesJobTypeID int64) (*Job, error) {
	jobs, err := c.JobsForCustomer(ctx, customerID, time.Time{})
	if err != nil {
		return nil, err
	}

	var newest *Job
	for i := range jobs {
		job := &jobs[i]
		if job.ID == excludeJobID || job.JobTypeID != salesJobTypeID {
			continue
		}
		if newest == nil || job.CreatedOn.After(newest.CreatedOn.Time) {
			newest = job
		}
	}
	return newest, nil
}

// FindNewerJobAtCustomer returns the newest job opened at the customer after
// the given time, excluding the originating job and the sales job type that
// FindFollowUpJob already accounts for. It backs the install-scheduled
// inference for sold tech-generated leads.
func (c *Client) FindNewerJobAtCustomer(ctx context.Context, customerID int64, after time.Time, excludeJobID, excludeJobTypeID int64) (*Job, error) {
	jobs, err := c.JobsForCustomer(ctx, customerID, after)
	if err != nil {
		return nil, err
	}

	var newest *Job
	for i := range jobs {
		job := &jobs[i]
		if job.ID == excludeJobID || job.JobTypeID == excludeJobTypeID {
			continue
		}
		if job.JobStatus == JobStatusCanceled {
			continue
		}
		if newest == nil || job.CreatedOn.After(newest.CreatedOn.Time) {
			newest = job
		}
	}
	return newest, nil
}

// EstimatesForJob returns every estimate attached to the job.
func (c *Client) EstimatesForJob(ctx context.Context, jobID int64) ([]Estimate, error) {
	query := url.Values{}
	query.Set("jobId", formatID(jobID))
	return getAll[Estimate](ctx, c, "fetch_estimates", c.tenantPath("sales/v2", "estimates"), query)
}

// AppointmentsForJob returns the job's scheduled appointments.
func (c *Client) AppointmentsForJob(ctx context.Context, jobID int64) ([]Appointment, error) {
	query := url.Values{}
	query.Set("jobId", formatID(jobID))
	return getAll[Appointment](ctx, c, "fetch_appointments", c.tenantPath("jpm/v2", "appointments"), query)
}

// AssignmentsForAppointment returns the technicians assigned to an appointment.
func (c *Client) AssignmentsForAppointment(ctx context.Context, appointmentID int64) ([]AppointmentAssignment, error) {
	query := url.Values{}
	query.Set("appointmentIds", formatID(appointmentID))
	return getAll[AppointmentAssignment](ctx, c, "fetch_assignments", c.tenantPath("dispatch/v2", "appointment-assignments"), query)
}

// CustomerByID fetches a customer record.
func (c *Client) CustomerByID(ctx context.Context, customerID int64) (*Customer, error) {
	var customer Customer
	path := c.tenantPath("crm/v2", "customers") + "/" + formatID(customerID)
	if err := c.get(ctx, "fetch_customer", path, nil, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// CustomerContacts returns the contact methods on a customer record.
func (c *Client) CustomerContacts(ctx context.Context, customerID int64) ([]CustomerContact, error) {
	path := c.tenantPath("crm/v2", "customers") + "/" + formatID(customerID) + "/contacts"
	return getAll[CustomerContact](ctx, c, "fetch_customer_contacts", path, nil)
}

// LocationByID fetches a service location.
func (c *Client) LocationByID(ctx context.Context, locationID int64) (*Location, error) {
	var location Location
	path := c.tenantPath("crm/v2", "locations") + "/" + formatID(locationID)
	if err := c.get(ctx, "fetch_location", path, nil, &location); err != nil {
		return nil, err
	}
	return &location, nil
}
