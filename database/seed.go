package database

import (
	"log"

	"firmdesk/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func intPtr(v int) *int { return &v }

// SeedInitialData seeds a freshly migrated tenant database with the static
// menu/operation reference data and an initial admin user. Safe to call
// repeatedly; existing rows are left alone.
func SeedInitialData(db *gorm.DB) {
	// --- Menus (two levels: top-level, then submenus under them) ---
	topMenus := []models.Menu{
		{Name: "Dashboard", SequenceNumber: intPtr(1)},
		{Name: "Clients", SequenceNumber: intPtr(2)},
		{Name: "Tasks", SequenceNumber: intPtr(3)},
		{Name: "Timesheets", SequenceNumber: intPtr(4)},
		{Name: "Reports", SequenceNumber: intPtr(5)},
		{Name: "Settings", SequenceNumber: intPtr(6)},
	}
	menuIDs := make(map[string]uint)
	for _, m := range topMenus {
		var existing models.Menu
		err := db.Where("name = ? AND parent_id IS NULL", m.Name).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			if err := db.Create(&m).Error; err != nil {
				log.Printf("Failed to seed menu %s: %v\n", m.Name, err)
				continue
			}
			log.Printf("Seeded menu: %s\n", m.Name)
			existing = m
		} else if err != nil {
			log.Printf("Error checking for menu %s: %v\n", m.Name, err)
			continue
		}
		menuIDs[existing.Name] = existing.ID
	}

	submenus := []struct {
		Parent string
		Menu   models.Menu
	}{
		{Parent: "Reports", Menu: models.Menu{Name: "Billing", SequenceNumber: intPtr(1)}},
		{Parent: "Reports", Menu: models.Menu{Name: "Attendance", SequenceNumber: intPtr(2)}},
		{Parent: "Settings", Menu: models.Menu{Name: "Employees", SequenceNumber: intPtr(1)}},
		{Parent: "Settings", Menu: models.Menu{Name: "Permissions", SequenceNumber: intPtr(2)}},
	}
	for _, s := range submenus {
		parentID, ok := menuIDs[s.Parent]
		if !ok {
			continue
		}
		var existing models.Menu
		err := db.Where("name = ? AND parent_id = ?", s.Menu.Name, parentID).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			s.Menu.ParentID = &parentID
			if err := db.Create(&s.Menu).Error; err != nil {
				log.Printf("Failed to seed submenu %s: %v\n", s.Menu.Name, err)
				continue
			}
			log.Printf("Seeded submenu: %s under %s\n", s.Menu.Name, s.Parent)
			existing = s.Menu
		} else if err != nil {
			continue
		}
		menuIDs[s.Parent+"/"+existing.Name] = existing.ID
	}

	// --- Operations ---
	operations := []models.Operation{
		{Name: "view"},
		{Name: "add"},
		{Name: "edit"},
		{Name: "delete"},
	}
	opIDs := make(map[string]uint)
	for _, op := range operations {
		var existing models.Operation
		err := db.Where("name = ?", op.Name).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			if err := db.Create(&op).Error; err != nil {
				log.Printf("Failed to seed operation %s: %v\n", op.Name, err)
				continue
			}
			log.Printf("Seeded operation: %s\n", op.Name)
			existing = op
		} else if err != nil {
			continue
		}
		opIDs[existing.Name] = existing.ID
	}

	// --- MenuOperations: every seeded menu gets every operation ---
	for _, menuID := range menuIDs {
		for _, opID := range opIDs {
			var existing models.MenuOperation
			err := db.Where("menu_id = ? AND operation_id = ?", menuID, opID).First(&existing).Error
			if err == gorm.ErrRecordNotFound {
				mo := models.MenuOperation{MenuID: menuID, OperationID: opID}
				if err := db.Create(&mo).Error; err != nil {
					log.Printf("Failed to seed menu operation %d/%d: %v\n", menuID, opID, err)
				}
			}
		}
	}

	// Create an initial admin user if none exists
	var adminUser models.User
	if err := db.Where("username = ?", "admin").First(&adminUser).Error; err == gorm.ErrRecordNotFound {
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("adminpassword"), bcrypt.DefaultCost)
		adminUser = models.User{
			Username: "admin",
			Password: string(hashedPassword),
			Name:     "Administrator",
			Email:    "admin@example.com",
			Role:     "admin",
			Status:   models.StatusActive,
		}
		if err := db.Create(&adminUser).Error; err != nil {
			log.Printf("Failed to create initial admin user: %v\n", err)
		} else {
			log.Println("Created initial admin user.")
		}
	}
}
