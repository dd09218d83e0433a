package services

import (
	"fmt"
	"strings"

	"github.com/huangang/consultdesk/internal/models"
)

// The functions below are pure: they read snap, never modify it, and return
// the next snapshot together with the entity that has to be persisted.

// AddConsultant appends c. Emails are unique; a non-nil GroupID must name an
// existing group.
func AddConsultant(snap *Snapshot, c models.Consultant) (*Snapshot, error) {
	if snap.consultantIndex(c.Email) >= 0 {
		return nil, validationError(fmt.Sprintf("consultant %s already exists", c.Email))
	}
	next := snap.clone()
	if c.GroupID != nil {
		gi := next.groupIndex(*c.GroupID)
		if gi < 0 {
			return nil, &NotFoundError{Entity: "group", Key: fmt.Sprint(*c.GroupID)}
		}
		next.Groups[gi].Members = append(next.Groups[gi].Members, c.Email)
	}
	next.Consultants = append(next.Consultants, c)
	return next, nil
}

// UpdateConsultant replaces the editable fields of the consultant. The
// email and group are kept; use MoveConsultant to change the group.
// Engagement snapshots are not refreshed.
func UpdateConsultant(snap *Snapshot, email string, in models.ConsultantInput) (*Snapshot, models.Consultant, error) {
	i := snap.consultantIndex(email)
	if i < 0 {
		return nil, models.Consultant{}, &NotFoundError{Entity: "consultant", Key: email}
	}
	cur := snap.Consultants[i]
	in.Email = cur.Email
	in.GroupID = cur.GroupID
	updated, err := models.NewConsultant(cur.OwnerID, in)
	if err != nil {
		return nil, models.Consultant{}, err
	}
	updated.ID = cur.ID
	updated.CreatedAt = cur.CreatedAt

	next := snap.clone()
	next.Consultants[i] = *updated
	return next, *updated, nil
}

// MoveConsultant transfers the consultant from one group to another. Group
// id 0 stands for "no group". Moving within the same group, or repeating a
// move that already happened, is a no-op and returns moved == false.
func MoveConsultant(snap *Snapshot, email string, fromGroup, toGroup uint) (next *Snapshot, moved *models.Consultant, err error) {
	if fromGroup == toGroup {
		return snap, nil, nil
	}
	for _, id := range []uint{fromGroup, toGroup} {
		if id != 0 && snap.groupIndex(id) < 0 {
			return nil, nil, &NotFoundError{Entity: "group", Key: fmt.Sprint(id)}
		}
	}
	ci := snap.consultantIndex(email)
	if ci < 0 {
		return nil, nil, &NotFoundError{Entity: "consultant", Key: email}
	}

	current := groupOf(snap.Consultants[ci])
	if current == toGroup {
		return snap, nil, nil
	}
	if current != fromGroup {
		return nil, nil, &NotFoundError{Entity: "consultant", Key: fmt.Sprintf("%s in group %d", email, fromGroup)}
	}

	next = snap.clone()
	c := next.Consultants[ci]
	if toGroup == 0 {
		c.GroupID = nil
	} else {
		id := toGroup
		c.GroupID = &id
	}
	next.Consultants[ci] = c

	if fromGroup != 0 {
		gi := next.groupIndex(fromGroup)
		next.Groups[gi].Members = removeString(next.Groups[gi].Members, email)
	}
	if toGroup != 0 {
		gi := next.groupIndex(toGroup)
		if !next.Groups[gi].HasMember(email) {
			next.Groups[gi].Members = append(next.Groups[gi].Members, email)
		}
	}
	return next, &c, nil
}

func groupOf(c models.Consultant) uint {
	if c.GroupID == nil {
		return 0
	}
	return *c.GroupID
}

func removeString(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

// DeleteConsultant removes the consultant together with its group
// membership, its engagements and their payments.
func DeleteConsultant(snap *Snapshot, email string) (*Snapshot, error) {
	ci := snap.consultantIndex(email)
	if ci < 0 {
		return nil, &NotFoundError{Entity: "consultant", Key: email}
	}
	next := snap.clone()
	next.Consultants = append(next.Consultants[:ci], next.Consultants[ci+1:]...)
	for i := range next.Groups {
		next.Groups[i].Members = removeString(next.Groups[i].Members, email)
	}
	next.Engagements = filter(next.Engagements, func(e models.ProjectConsultant) bool {
		return e.ConsultantEmail != email
	})
	next.Payments = filter(next.Payments, func(p models.Payment) bool {
		return p.ConsultantEmail != email
	})
	return next, nil
}

func filter[T any](in []T, keep func(T) bool) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func AddGroup(snap *Snapshot, g models.Group) (*Snapshot, error) {
	if g.ID != 0 && snap.groupIndex(g.ID) >= 0 {
		return nil, validationError(fmt.Sprintf("group %d already exists", g.ID))
	}
	next := snap.clone()
	if g.Members == nil {
		g.Members = []string{}
	}
	next.Groups = append(next.Groups, g)
	return next, nil
}

func RenameGroup(snap *Snapshot, id uint, title string) (*Snapshot, models.Group, error) {
	gi := snap.groupIndex(id)
	if gi < 0 {
		return nil, models.Group{}, &NotFoundError{Entity: "group", Key: fmt.Sprint(id)}
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, models.Group{}, validationError("group title is required")
	}
	next := snap.clone()
	next.Groups[gi].Title = title
	return next, next.Groups[gi], nil
}

func AddProject(snap *Snapshot, p models.Project) (*Snapshot, error) {
	if p.ID != 0 && snap.projectIndex(p.ID) >= 0 {
		return nil, validationError(fmt.Sprintf("project %d already exists", p.ID))
	}
	if !p.Status.Valid() {
		return nil, validationError(fmt.Sprintf("invalid project status %q", p.Status))
	}
	next := snap.clone()
	next.Projects = append(next.Projects, p)
	return next, nil
}

func UpdateProject(snap *Snapshot, id uint, in models.ProjectInput) (*Snapshot, models.Project, error) {
	pi := snap.projectIndex(id)
	if pi < 0 {
		return nil, models.Project{}, &NotFoundError{Entity: "project", Key: fmt.Sprint(id)}
	}
	p := snap.Projects[pi]
	if err := p.Apply(in); err != nil {
		return nil, models.Project{}, err
	}
	next := snap.clone()
	next.Projects[pi] = p
	return next, p, nil
}

// UpdateProjectStatus sets any status from any status.
func UpdateProjectStatus(snap *Snapshot, id uint, status models.ProjectStatus) (*Snapshot, models.Project, error) {
	if !status.Valid() {
		return nil, models.Project{}, validationError(fmt.Sprintf("invalid project status %q", status))
	}
	pi := snap.projectIndex(id)
	if pi < 0 {
		return nil, models.Project{}, &NotFoundError{Entity: "project", Key: fmt.Sprint(id)}
	}
	next := snap.clone()
	next.Projects[pi].Status = status
	return next, next.Projects[pi], nil
}

// DeleteProject removes the project, its engagements and their payments.
func DeleteProject(snap *Snapshot, id uint) (*Snapshot, error) {
	pi := snap.projectIndex(id)
	if pi < 0 {
		return nil, &NotFoundError{Entity: "project", Key: fmt.Sprint(id)}
	}
	next := snap.clone()
	next.Projects = append(next.Projects[:pi], next.Projects[pi+1:]...)
	next.Engagements = filter(next.Engagements, func(e models.ProjectConsultant) bool {
		return e.ProjectID != id
	})
	next.Payments = filter(next.Payments, func(p models.Payment) bool {
		return p.ProjectID != id
	})
	return next, nil
}

// AttachToProject engages c on the project with quote 0 and status
// in-progress, copying its display fields.
func AttachToProject(snap *Snapshot, projectID uint, c models.Consultant) (*Snapshot, models.ProjectConsultant, error) {
	if snap.projectIndex(projectID) < 0 {
		return nil, models.ProjectConsultant{}, &NotFoundError{Entity: "project", Key: fmt.Sprint(projectID)}
	}
	if snap.engagementIndex(projectID, c.Email) >= 0 {
		return nil, models.ProjectConsultant{}, &AlreadyAttachedError{ProjectID: projectID, Email: c.Email}
	}
	e, err := models.NewEngagement(projectID, &c)
	if err != nil {
		return nil, models.ProjectConsultant{}, err
	}
	next := snap.clone()
	next.Engagements = append(next.Engagements, *e)
	return next, *e, nil
}

// DetachFromProject removes the engagement and the payments raised on it.
// It returns the number of payments removed.
func DetachFromProject(snap *Snapshot, projectID uint, email string) (*Snapshot, int, error) {
	ei := snap.engagementIndex(projectID, email)
	if ei < 0 {
		return nil, 0, &NotFoundError{Entity: "engagement", Key: fmt.Sprintf("(%d, %s)", projectID, email)}
	}
	next := snap.clone()
	next.Engagements = append(next.Engagements[:ei], next.Engagements[ei+1:]...)
	before := len(next.Payments)
	next.Payments = filter(next.Payments, func(p models.Payment) bool {
		return p.ProjectID != projectID || p.ConsultantEmail != email
	})
	return next, before - len(next.Payments), nil
}

// UpdateQuote sets a new quote. Existing payments are not checked, so the
// quote may drop below the amount already invoiced.
func UpdateQuote(snap *Snapshot, projectID uint, email string, quote float64) (*Snapshot, models.ProjectConsultant, error) {
	if quote < 0 {
		return nil, models.ProjectConsultant{}, validationError("quote must not be negative")
	}
	if !validAmount(quote) {
		return nil, models.ProjectConsultant{}, validationError(MsgInvalidAmount)
	}
	ei := snap.engagementIndex(projectID, email)
	if ei < 0 {
		return nil, models.ProjectConsultant{}, &NotFoundError{Entity: "engagement", Key: fmt.Sprintf("(%d, %s)", projectID, email)}
	}
	next := snap.clone()
	next.Engagements[ei].Quote = quote
	return next, next.Engagements[ei], nil
}

// UpdateEngagementStatus sets any status from any status.
func UpdateEngagementStatus(snap *Snapshot, projectID uint, email string, status models.EngagementStatus) (*Snapshot, models.ProjectConsultant, error) {
	if !status.Valid() {
		return nil, models.ProjectConsultant{}, validationError(fmt.Sprintf("invalid engagement status %q", status))
	}
	ei := snap.engagementIndex(projectID, email)
	if ei < 0 {
		return nil, models.ProjectConsultant{}, &NotFoundError{Entity: "engagement", Key: fmt.Sprintf("(%d, %s)", projectID, email)}
	}
	next := snap.clone()
	next.Engagements[ei].Status = status
	return next, next.Engagements[ei], nil
}

// AddPayment appends a payment produced by CreateInvoice.
func AddPayment(snap *Snapshot, p models.Payment) (*Snapshot, error) {
	if snap.engagementIndex(p.ProjectID, p.ConsultantEmail) < 0 {
		return nil, &NotFoundError{Entity: "engagement", Key: fmt.Sprintf("(%d, %s)", p.ProjectID, p.ConsultantEmail)}
	}
	next := snap.clone()
	next.Payments = append(next.Payments, p)
	return next, nil
}

// ReplacePayment swaps in an updated payment with the same id.
func ReplacePayment(snap *Snapshot, p models.Payment) (*Snapshot, error) {
	pi := snap.paymentIndex(p.ID)
	if pi < 0 {
		return nil, &NotFoundError{Entity: "payment", Key: fmt.Sprint(p.ID)}
	}
	next := snap.clone()
	next.Payments[pi] = p
	return next, nil
}
