package services

import (
	"context"
	"sort"

	"github.com/huangang/consultdesk/internal/models"
)

type DashboardStats struct {
	ActiveProjects    int     `json:"active_projects"`
	OnHoldProjects    int     `json:"on_hold_projects"`
	CompletedProjects int     `json:"completed_projects"`
	Consultants       int     `json:"consultants"`
	Outstanding       float64 `json:"outstanding"`
	Summary
}

type ProjectStats struct {
	ProjectID   uint                 `json:"project_id"`
	Title       string               `json:"title"`
	Status      models.ProjectStatus `json:"status"`
	Consultants int                  `json:"consultants"`
	Summary
}

type ConsultantStats struct {
	Email    string  `json:"email"`
	Name     string  `json:"name"`
	Projects int     `json:"projects"`
	Quote    float64 `json:"quote"`
	Invoiced float64 `json:"invoiced"`
	Paid     float64 `json:"paid"`
}

type DashboardResponse struct {
	Stats           DashboardStats    `json:"stats"`
	ProjectStats    []ProjectStats    `json:"project_stats"`
	ConsultantStats []ConsultantStats `json:"consultant_stats"`
}

// BuildDashboard aggregates a snapshot. Outstanding is invoiced but unpaid.
// Consultants are ordered by quote, highest first.
func BuildDashboard(snap *Snapshot) *DashboardResponse {
	resp := &DashboardResponse{
		ProjectStats:    []ProjectStats{},
		ConsultantStats: []ConsultantStats{},
	}
	resp.Stats.Consultants = len(snap.Consultants)

	for _, p := range snap.Projects {
		switch p.Status {
		case models.ProjectActive:
			resp.Stats.ActiveProjects++
		case models.ProjectOnHold:
			resp.Stats.OnHoldProjects++
		case models.ProjectCompleted:
			resp.Stats.CompletedProjects++
		}
		engagements := snap.EngagementsOf(p.ID)
		resp.ProjectStats = append(resp.ProjectStats, ProjectStats{
			ProjectID:   p.ID,
			Title:       p.Title,
			Status:      p.Status,
			Consultants: len(engagements),
			Summary:     Summarize(engagements, snap.PaymentsOf(p.ID)),
		})
	}

	resp.Stats.Summary = Summarize(snap.Engagements, snap.Payments)
	resp.Stats.Outstanding = float64(cents(resp.Stats.TotalInvoiced)-cents(resp.Stats.TotalPaid)) / 100

	byEmail := make(map[string]*ConsultantStats)
	var order []string
	for i := range snap.Engagements {
		e := &snap.Engagements[i]
		cs, ok := byEmail[e.ConsultantEmail]
		if !ok {
			name := e.Name
			if c, found := snap.Consultant(e.ConsultantEmail); found {
				name = c.Name
			}
			cs = &ConsultantStats{Email: e.ConsultantEmail, Name: name}
			byEmail[e.ConsultantEmail] = cs
			order = append(order, e.ConsultantEmail)
		}
		cs.Projects++
		cs.Quote += e.Quote
		for _, p := range engagementPayments(e, snap.Payments) {
			cs.Invoiced += p.Amount
			if p.Status == models.PaymentPaid {
				cs.Paid += p.Amount
			}
		}
	}
	for _, email := range order {
		resp.ConsultantStats = append(resp.ConsultantStats, *byEmail[email])
	}
	sort.SliceStable(resp.ConsultantStats, func(i, j int) bool {
		return resp.ConsultantStats[i].Quote > resp.ConsultantStats[j].Quote
	})

	return resp
}

// Dashboard returns the dashboard of owner.
func (w *Workspace) Dashboard(ctx context.Context, owner uint) (*DashboardResponse, error) {
	snap, err := w.Snapshot(ctx, owner)
	if err != nil {
		return nil, err
	}
	return BuildDashboard(snap), nil
}
