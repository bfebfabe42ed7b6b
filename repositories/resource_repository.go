package repositories

import (
	"fmt"

	"firmdesk/errs"
	"firmdesk/models"

	"gorm.io/gorm"
)

// ResourceDef describes one CRUD resource: its table, the fields clients may
// write, and the uniqueness tuple checked on create.
type ResourceDef struct {
	Name     string
	Table    string
	Fields   []string
	UniqueBy []string
}

// ResourceRepository is the generic parameterized-query wrapper behind the
// repeated list/add/edit/delete controllers. Soft-deleted rows (status flag)
// are excluded everywhere and never physically removed.
type ResourceRepository struct {
	db  *gorm.DB
	def ResourceDef
}

// NewResourceRepository binds a resource definition to one tenant handle.
func NewResourceRepository(db *gorm.DB, def ResourceDef) *ResourceRepository {
	return &ResourceRepository{db: db, def: def}
}

func (r *ResourceRepository) allowed(field string) bool {
	for _, f := range r.def.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// sanitize drops any field the resource definition does not allow.
func (r *ResourceRepository) sanitize(fields map[string]interface{}) map[string]interface{} {
	clean := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if r.allowed(k) {
			clean[k] = v
		}
	}
	return clean
}

// List returns active rows, optionally filtered by allowed fields.
func (r *ResourceRepository) List(filter map[string]interface{}) ([]map[string]interface{}, error) {
	query := r.db.Table(r.def.Table).Where("status = ?", models.StatusActive)
	for k, v := range r.sanitize(filter) {
		query = query.Where(fmt.Sprintf("%s = ?", k), v)
	}

	var rows []map[string]interface{}
	if err := query.Order("id").Find(&rows).Error; err != nil {
		return nil, errs.Internal("database error listing "+r.def.Name, err)
	}
	return rows, nil
}

// Create inserts a row after checking the resource's uniqueness tuple
// against active rows.
func (r *ResourceRepository) Create(fields map[string]interface{}) (uint, error) {
	clean := r.sanitize(fields)
	if len(clean) == 0 {
		return 0, errs.Validationf("mandatory fields missing")
	}

	if len(r.def.UniqueBy) > 0 {
		query := r.db.Table(r.def.Table).Where("status = ?", models.StatusActive)
		for _, col := range r.def.UniqueBy {
			val, ok := clean[col]
			if !ok {
				return 0, errs.Validationf("mandatory fields missing")
			}
			query = query.Where(fmt.Sprintf("%s = ?", col), val)
		}
		var count int64
		if err := query.Count(&count).Error; err != nil {
			return 0, errs.Internal("database error checking duplicate "+r.def.Name, err)
		}
		if count > 0 {
			return 0, errs.Conflictf("%s with the same %v already exists", r.def.Name, r.def.UniqueBy)
		}
	}

	clean["status"] = models.StatusActive

	// The map-based create does not report the assigned id back, so read the
	// connection's last insert id inside the same transaction.
	var id uint
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(r.def.Table).Create(clean).Error; err != nil {
			return err
		}
		return tx.Raw(lastInsertIDQuery(tx.Dialector.Name())).Scan(&id).Error
	})
	if err != nil {
		return 0, errs.Internal("failed to create "+r.def.Name, err)
	}
	return id, nil
}

func lastInsertIDQuery(dialect string) string {
	if dialect == "sqlite" {
		return "SELECT last_insert_rowid()"
	}
	return "SELECT LAST_INSERT_ID()"
}

// Update applies the given fields to an active row.
func (r *ResourceRepository) Update(id uint, fields map[string]interface{}) error {
	clean := r.sanitize(fields)
	if len(clean) == 0 {
		return errs.Validationf("mandatory fields missing")
	}

	result := r.db.Table(r.def.Table).
		Where("id = ? AND status = ?", id, models.StatusActive).
		Updates(clean)
	if result.Error != nil {
		return errs.Internal("failed to update "+r.def.Name, result.Error)
	}
	if result.RowsAffected == 0 {
		return errs.NotFoundf("%s not found", r.def.Name)
	}
	return nil
}

// SoftDelete flips the status flag; the row is never physically deleted.
func (r *ResourceRepository) SoftDelete(id uint) error {
	result := r.db.Table(r.def.Table).
		Where("id = ? AND status = ?", id, models.StatusActive).
		Update("status", models.StatusDeleted)
	if result.Error != nil {
		return errs.Internal("failed to delete "+r.def.Name, result.Error)
	}
	if result.RowsAffected == 0 {
		return errs.NotFoundf("%s not found", r.def.Name)
	}
	return nil
}
