package repositories

import (
	"time"

	"firmdesk/models"

	"gorm.io/gorm"
)

// GrantRow is one flat row of the grant join: a user's grant resolved down to
// menu (+optional parent) and operation name.
type GrantRow struct {
	MenuID         uint
	MenuName       string
	MenuSequence   *int
	ParentID       *uint
	ParentName     *string
	ParentSequence *int
	Operation      string
	GrantedAt      time.Time
}

// MenuOperationRow is one grantable menu/operation pair with its resolved
// menu names.
type MenuOperationRow struct {
	MenuOperationID uint
	MenuName        string
	ParentID        *uint
	ParentName      *string
	Operation       string
}

// SetOperationRow is one permission set joined with one of its granted
// menu/operation pairs. Sets without operations yield a single row with an
// empty operation.
type SetOperationRow struct {
	SetID       uint
	SetName     string
	Description string
	MenuName    *string
	ParentID    *uint
	ParentName  *string
	Operation   *string
}

// PermissionRepository defines the queries behind the permission aggregation
// engine. Implementations are request-scoped: one per tenant handle.
type PermissionRepository interface {
	CreatePermissionSet(set *models.PermissionSet, menuOperationIDs []uint) error
	UpdatePermissionSet(set *models.PermissionSet, menuOperationIDs []uint) error
	FindSetByID(id uint) (*models.PermissionSet, error)
	FindSetByName(name string) (*models.PermissionSet, error)
	FindUserByID(id uint) (*models.User, error)
	CreateGrant(grant *models.UserPermissionGrant) error
	GrantRowsForUser(userID uint) ([]GrantRow, error)
	MenuOperationRows() ([]MenuOperationRow, error)
	SetOperationRows() ([]SetOperationRow, error)
	ActiveUsers() ([]models.User, error)
}

type permissionRepository struct {
	db *gorm.DB
}

// NewPermissionRepository creates a repository bound to one tenant handle.
func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &permissionRepository{db: db}
}

// CreatePermissionSet persists the set metadata and one join row per menu
// operation id in a single transaction.
func (r *permissionRepository) CreatePermissionSet(set *models.PermissionSet, menuOperationIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(set).Error; err != nil {
			return err
		}
		for _, moID := range menuOperationIDs {
			row := models.PermissionSetOperation{
				PermissionSetID: set.ID,
				MenuOperationID: moID,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdatePermissionSet replaces the set metadata and its whole operation
// mapping. The delete-then-reinsert runs inside a transaction so a failure
// mid-way never leaves the set with zero operations mapped.
func (r *permissionRepository) UpdatePermissionSet(set *models.PermissionSet, menuOperationIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(set).Error; err != nil {
			return err
		}
		if err := tx.Where("permission_set_id = ?", set.ID).
			Delete(&models.PermissionSetOperation{}).Error; err != nil {
			return err
		}
		for _, moID := range menuOperationIDs {
			row := models.PermissionSetOperation{
				PermissionSetID: set.ID,
				MenuOperationID: moID,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *permissionRepository) FindSetByID(id uint) (*models.PermissionSet, error) {
	var set models.PermissionSet
	result := r.db.First(&set, id)
	if result.Error != nil {
		return nil, result.Error
	}
	return &set, nil
}

func (r *permissionRepository) FindSetByName(name string) (*models.PermissionSet, error) {
	var set models.PermissionSet
	result := r.db.Where("name = ?", name).First(&set)
	if result.Error != nil {
		return nil, result.Error
	}
	return &set, nil
}

func (r *permissionRepository) FindUserByID(id uint) (*models.User, error) {
	var user models.User
	result := r.db.First(&user, id)
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}

// CreateGrant appends a grant row. Identical grants are not deduplicated.
func (r *permissionRepository) CreateGrant(grant *models.UserPermissionGrant) error {
	return r.db.Create(grant).Error
}

// GrantRowsForUser joins every permission set the user holds down to the
// resolved menu, parent menu and operation names, one row per grant.
func (r *permissionRepository) GrantRowsForUser(userID uint) ([]GrantRow, error) {
	var rows []GrantRow
	err := r.db.Raw(`
		SELECT m.id AS menu_id,
		       m.name AS menu_name,
		       m.sequence_number AS menu_sequence,
		       m.parent_id AS parent_id,
		       p.name AS parent_name,
		       p.sequence_number AS parent_sequence,
		       o.name AS operation,
		       g.granted_at AS granted_at
		FROM user_permission_grants g
		JOIN permission_set_operations pso ON pso.permission_set_id = g.permission_set_id
		JOIN menu_operations mo ON mo.id = pso.menu_operation_id
		JOIN menus m ON m.id = mo.menu_id
		LEFT JOIN menus p ON p.id = m.parent_id
		JOIN operations o ON o.id = mo.operation_id
		WHERE g.user_id = ?
		ORDER BY g.id, mo.id`, userID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MenuOperationRows lists every grantable menu/operation pair.
func (r *permissionRepository) MenuOperationRows() ([]MenuOperationRow, error) {
	var rows []MenuOperationRow
	err := r.db.Raw(`
		SELECT mo.id AS menu_operation_id,
		       m.name AS menu_name,
		       m.parent_id AS parent_id,
		       p.name AS parent_name,
		       o.name AS operation
		FROM menu_operations mo
		JOIN menus m ON m.id = mo.menu_id
		LEFT JOIN menus p ON p.id = m.parent_id
		JOIN operations o ON o.id = mo.operation_id
		ORDER BY mo.id`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SetOperationRows lists every permission set with each of its granted
// menu/operation pairs. Left joins keep sets with no operations.
func (r *permissionRepository) SetOperationRows() ([]SetOperationRow, error) {
	var rows []SetOperationRow
	err := r.db.Raw(`
		SELECT ps.id AS set_id,
		       ps.name AS set_name,
		       ps.description AS description,
		       m.name AS menu_name,
		       m.parent_id AS parent_id,
		       p.name AS parent_name,
		       o.name AS operation
		FROM permission_sets ps
		LEFT JOIN permission_set_operations pso ON pso.permission_set_id = ps.id
		LEFT JOIN menu_operations mo ON mo.id = pso.menu_operation_id
		LEFT JOIN menus m ON m.id = mo.menu_id
		LEFT JOIN menus p ON p.id = m.parent_id
		LEFT JOIN operations o ON o.id = mo.operation_id
		ORDER BY ps.id, mo.id`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ActiveUsers lists users that have not been soft deleted.
func (r *permissionRepository) ActiveUsers() ([]models.User, error) {
	var users []models.User
	result := r.db.Where("status = ?", models.StatusActive).Order("id").Find(&users)
	if result.Error != nil {
		return nil, result.Error
	}
	return users, nil
}
