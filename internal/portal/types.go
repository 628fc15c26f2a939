package portal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const portalTimestampLayout = "2006-01-02 15:04:05"

// Company mirrors an entry of /api/companies.
type Company struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Industry    string `json:"industry"`
	Location    string `json:"location"`
	Website     string `json:"website"`
	Size        string `json:"size"`
	Description string `json:"description"`
	OpenJobs    int    `json:"openJobs"`
	CreatedAt   string `json:"createdAt"`
}

// Job mirrors an entry of /api/jobs.
type Job struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	CompanyID      int64  `json:"companyId"`
	CompanyName    string `json:"companyName"`
	Category       string `json:"category"`
	Location       string `json:"location"`
	EmploymentType string `json:"employmentType"`
	Remote         bool   `json:"remote"`
	SalaryMin      int    `json:"salaryMin"`
	SalaryMax      int    `json:"salaryMax"`
	Currency       string `json:"currency"`
	Description    string `json:"description"`
	Status         string `json:"status"`
	ApplicantCount int    `json:"applicantCount"`
	Applied        bool   `json:"applied"`
	Saved          bool   `json:"saved"`
	PostedAt       string `json:"postedAt"`
	Deadline       string `json:"deadline"`
}

// IsOpen reports whether the job still accepts applications.
func (j Job) IsOpen() bool {
	status := strings.ToLower(strings.TrimSpace(j.Status))
	return status == "" || status == "open" || status == "active"
}

// ParsedPostedAt returns the parsed PostedAt timestamp.
func (j Job) ParsedPostedAt() time.Time {
	return parseTime(j.PostedAt)
}

// ParsedDeadline returns the parsed Deadline timestamp.
func (j Job) ParsedDeadline() time.Time {
	return parseTime(j.Deadline)
}

// SalaryLabel renders the salary range, e.g. "USD 90k-120k".
func (j Job) SalaryLabel() string {
	if j.SalaryMin <= 0 && j.SalaryMax <= 0 {
		return ""
	}
	currency := strings.TrimSpace(j.Currency)
	if currency == "" {
		currency = "USD"
	}
	switch {
	case j.SalaryMax <= 0 || j.SalaryMax == j.SalaryMin:
		return fmt.Sprintf("%s %s", currency, thousands(j.SalaryMin))
	case j.SalaryMin <= 0:
		return fmt.Sprintf("%s up to %s", currency, thousands(j.SalaryMax))
	default:
		return fmt.Sprintf("%s %s-%s", currency, thousands(j.SalaryMin), thousands(j.SalaryMax))
	}
}

func thousands(v int) string {
	if v >= 1000 && v%1000 == 0 {
		return fmt.Sprintf("%dk", v/1000)
	}
	return fmt.Sprintf("%d", v)
}

// Application is the body of POST /api/jobs/{id}/apply.
type Application struct {
	CoverLetter string `json:"coverLetter,omitempty"`
	ResumeURL   string `json:"resumeUrl,omitempty"`
}

// ApplicationResult is the server's acknowledgement of an application.
type ApplicationResult struct {
	ID             int64  `json:"id"`
	JobID          int64  `json:"jobId"`
	Status         string `json:"status"`
	ApplicantCount int    `json:"applicantCount"`
}

// JobPatch is the body of PATCH /api/jobs/{id}. Nil fields are left alone.
type JobPatch struct {
	Title    *string `json:"title,omitempty"`
	Category *string `json:"category,omitempty"`
	Location *string `json:"location,omitempty"`
	Status   *string `json:"status,omitempty"`
}

// ContactMessage is the body of POST /api/contact.
type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// decodeList accepts a bare JSON array or an object wrapping it in "data".
// Any other shape is an error so the caller keeps its previous items.
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] != '[' {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, err
		}
		if len(envelope.Data) == 0 {
			return nil, errors.New(`response has no "data" field`)
		}
		trimmed = bytes.TrimSpace(envelope.Data)
		if bytes.Equal(trimmed, []byte("null")) {
			return nil, nil
		}
	}
	var items []T
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(portalTimestampLayout, value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
