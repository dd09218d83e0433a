package services

import (
	"context"
	"time"

	"github.com/huangang/consultdesk/internal/models"
	"gorm.io/gorm"
)

// Repository is the durable store behind the workspace. Every method may
// fail; deletes remove dependent rows first and are atomic.
type Repository interface {
	ListConsultants(ctx context.Context, owner uint) ([]models.Consultant, error)
	ListGroups(ctx context.Context, owner uint) ([]models.Group, error)
	ListProjects(ctx context.Context, owner uint) ([]models.Project, error)
	ListProjectConsultants(ctx context.Context, projectID uint) ([]models.ProjectConsultant, error)
	ListPayments(ctx context.Context, projectID uint) ([]models.Payment, error)

	InsertConsultant(ctx context.Context, c *models.Consultant) error
	UpdateConsultant(ctx context.Context, c *models.Consultant) error
	DeleteConsultant(ctx context.Context, owner uint, email string) error

	InsertGroup(ctx context.Context, g *models.Group) error
	UpdateGroup(ctx context.Context, g *models.Group) error

	InsertProject(ctx context.Context, p *models.Project) error
	UpdateProject(ctx context.Context, p *models.Project) error
	DeleteProject(ctx context.Context, id uint) error

	InsertProjectConsultant(ctx context.Context, e *models.ProjectConsultant) error
	UpdateProjectConsultant(ctx context.Context, e *models.ProjectConsultant) error
	DeleteProjectConsultant(ctx context.Context, projectID uint, email string) error

	InsertPayment(ctx context.Context, p *models.Payment) error
	UpdatePayment(ctx context.Context, p *models.Payment) error

	ListTasks(ctx context.Context, owner uint, email string) ([]models.Task, error)
	ListTasksDue(ctx context.Context, from, to time.Time) ([]models.Task, error)
	ReplaceTasks(ctx context.Context, owner uint, email string, tasks []models.Task) error
}

// GormRepository implements Repository on sqlite, mysql or postgres.
type GormRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewGormRepository(db *gorm.DB, timeout time.Duration) *GormRepository {
	return &GormRepository{db: db, timeout: timeout}
}

func (r *GormRepository) conn(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	if r.timeout <= 0 {
		return r.db.WithContext(ctx), func() {}
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	return r.db.WithContext(ctx), cancel
}

func (r *GormRepository) ListConsultants(ctx context.Context, owner uint) ([]models.Consultant, error) {
	db, cancel := r.conn(ctx)
	defer cancel()
	var out []models.Consultant
	err := db.Where("owner_id = ?", owner).Order("id").Find(&out).Error
	return out, err
}

func (r *GormRepository) ListGroups(ctx context.Context, owner uint) ([]models.Group, error) {
	db, cancel := r.conn(ctx)
	defer cancel()
	var out []models.Group
	err := db.Where("owner_id = ?", owner).Order("id").Find(&out).Error
	return out, err
}

func (r *GormRepository) ListProjects(ctx context.Context, owner uint) ([]models.Project, error) {
	db, cancel := r.conn(ctx)
	defer cancel()
	var out []models.Project
	err := db.Where("owner_id = ?", owner).Order("id").Find(&out).Error
	return out, err
}

func (r *GormRepository) ListProjectConsultants(ctx context.Context, projectID uint) ([]models.ProjectConsultant, error) {
	db, cancel := r.conn(ctx)
	defer cancel()
	var out []models.ProjectConsultant
	err := db.Where("project_id = ?", projectID).Order("id").Find(&out).Error
	return out, err
}

func (r *GormRepository) ListPayments(ctx context.Context, projectID uint) ([]models.Payment, error) {
	db, cancel := r.conn(ctx)
	defer cancel()
	var out []models.Payment
	err := db.Where("project_id = ?", projectID).Order("id").Find(&out).Error
	return out, err
}

func (r *GormRepository) InsertConsultant(ctx context.Context, c *models.Consultant) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	return db.Create(c).Error
}

func (r *GormRepository) UpdateConsultant(ctx context.Context, c *models.Consultant) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	return db.Save(c).Error
}

// DeleteConsultant removes the consultant's payments, engagements and
// tasks before the consultant row itself.
func (r *GormRepository) DeleteConsultant(ctx context.Context, owner uint, email string) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	return db.Transaction(func(tx *gorm.DB) error {
		var projectIDs []uint
		if err := tx.Model(&models.Project{}).Where("owner_id = ?", owner).Pluck("id", &projectIDs).Error; err != nil {
			return err
		}
		if len(projectIDs) > 0 {
			if err := tx.Where("consultant_email = ? AND project_id IN ?", email, projectIDs).
				Delete(&models.Payment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("consultant_email = ? AND project_id IN ?", email, projectIDs).
				Delete(&models.ProjectConsultant{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("owner_id = ? AND consultant_email = ?", owner, email).
			Delete(&models.Task{}).Error; err != nil {
			return err
		}
		res := tx.Where("owner_id = ? AND email = ?", owner, email).Delete(&models.Consultant{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *GormRepository) InsertGroup(ctx context.Context, g *models.Group) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	return db.Create(g).Error
}

func (r *GormRepository) UpdateGroup(ctx context.Context, g *models.Group) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	return db.Save(g).Error
}

func (r *GormRepository) InsertProject(ctx context.Context, p *models.Project) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	return db.Create(p).Error
}

func (r *GormRepository) UpdateProject(ctx context.Context, p *models.Project) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	return db.Save(p).Error
}

// DeleteProject removes payments and engagements before the project.
func (r *GormRepository) DeleteProject(ctx context.Context, id uint) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&models.Payment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.ProjectConsultant{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Project{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *GormRepository) InsertProjectConsultant(ctx context.Context, e *models.ProjectConsultant) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	return db.Create(e).Error
}

func (r *GormRepository) UpdateProjectConsultant(ctx context.Context, e *models.ProjectConsultant) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	return db.Model(&models.ProjectConsultant{}).
		Where("project_id = ? AND consultant_email = ?", e.ProjectID, e.ConsultantEmail).
		Updates(map[string]interface{}{
			"quote":  e.Quote,
			"status": e.Status,
		}).Error
}

// DeleteProjectConsultant removes the engagement's payments before the
// engagement.
func (r *GormRepository) DeleteProjectConsultant(ctx context.Context, projectID uint, email string) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ? AND consultant_email = ?", projectID, email).
			Delete(&models.Payment{}).Error; err != nil {
			return err
		}
		return tx.Where("project_id = ? AND consultant_email = ?", projectID, email).
			Delete(&models.ProjectConsultant{}).Error
	})
}

func (r *GormRepository) InsertPayment(ctx context.Context, p *models.Payment) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	return db.Create(p).Error
}

func (r *GormRepository) UpdatePayment(ctx context.Context, p *models.Payment) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	return db.Save(p).Error
}

func (r *GormRepository) ListTasks(ctx context.Context, owner uint, email string) ([]models.Task, error) {
	db, cancel := r.conn(ctx)
	defer cancel()
	var out []models.Task
	err := db.Where("owner_id = ? AND consultant_email = ?", owner, email).
		Order("position").Find(&out).Error
	return out, err
}

// ListTasksDue returns open tasks with a due date in [from, to).
func (r *GormRepository) ListTasksDue(ctx context.Context, from, to time.Time) ([]models.Task, error) {
	db, cancel := r.conn(ctx)
	defer cancel()
	var out []models.Task
	err := db.Where("completed = ? AND due_date >= ? AND due_date < ?", false, from, to).
		Order("owner_id, consultant_email, position").Find(&out).Error
	return out, err
}

// ReplaceTasks overwrites the stored list of one consultant.
func (r *GormRepository) ReplaceTasks(ctx context.Context, owner uint, email string, tasks []models.Task) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ? AND consultant_email = ?", owner, email).
			Delete(&models.Task{}).Error; err != nil {
			return err
		}
		if len(tasks) == 0 {
			return nil
		}
		return tx.Create(&tasks).Error
	})
}
