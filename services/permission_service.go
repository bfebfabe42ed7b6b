package services

import (
	"errors"
	"sort"
	"strings"
	"time"

	"firmdesk/errs"
	"firmdesk/models"
	"firmdesk/repositories"

	"gorm.io/gorm"
)

// sequenceSentinel orders menus with no sequence number last.
const sequenceSentinel = 9999

// --- Structs for Input/Output ---

type DefinePermissionSetInput struct {
	Name        string `json:"permission_name"`
	Description string `json:"description"`
	// MenuOperationIDs are ids from the menu_operations catalog.
	MenuOperationIDs []uint `json:"operations"`
}

type GrantedOperation struct {
	Operation string    `json:"operation"`
	GrantedAt time.Time `json:"granted_at"`
}

type SubmenuPermissions struct {
	Submenu        string             `json:"submenu"`
	SequenceNumber *int               `json:"sequence_number"`
	Operations     []GrantedOperation `json:"operations"`
}

// MenuPermissions is one top-level node of the effective-permission tree.
// Operations holds grants on the menu itself; Submenus holds grants on its
// children.
type MenuPermissions struct {
	ParentMenu     string               `json:"parent_menu"`
	SequenceNumber *int                 `json:"sequence_number"`
	Operations     []GrantedOperation   `json:"operations,omitempty"`
	Submenus       []SubmenuPermissions `json:"submenus,omitempty"`
}

// MenuOperationEntry is one grantable menu/operation pair. A top-level menu
// is reported as its own parent with no submenu field.
type MenuOperationEntry struct {
	MenuOperationID uint   `json:"menu_operation_id"`
	ParentMenu      string `json:"parent_menu"`
	Submenu         string `json:"submenu,omitempty"`
	Operation       string `json:"operation"`
}

// PermissionSetEntry is one permission set with its operations grouped by
// parent-menu label: a parent without submenus maps to an array of operation
// names, one with submenus to a map of submenu name to operation names.
type PermissionSetEntry struct {
	PermissionID   uint                   `json:"permission_id"`
	PermissionName string                 `json:"permission_name"`
	Description    string                 `json:"description"`
	Permissions    map[string]interface{} `json:"permissions"`
}

type UserSummary struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// The PermissionService interface is the permission aggregation engine: it
// turns flat grant rows into ordered trees and catalogs.
type PermissionService interface {
	DefinePermissionSet(input *DefinePermissionSetInput, creatorID uint) (uint, error)
	UpdatePermissionSet(id uint, input *DefinePermissionSetInput) error
	GrantPermissionSet(userID, permissionSetID, grantedBy uint) error
	EffectivePermissions(userID uint) ([]MenuPermissions, error)
	GrantableMenuOperations() ([]MenuOperationEntry, error)
	PermissionSetsWithOperations() ([]PermissionSetEntry, error)
	AllUsers() ([]UserSummary, error)
}

type permissionService struct {
	repo repositories.PermissionRepository
}

var _ PermissionService = (*permissionService)(nil)

// NewPermissionService creates a PermissionService bound to one tenant
// repository.
func NewPermissionService(repo repositories.PermissionRepository) PermissionService {
	return &permissionService{repo: repo}
}

// DefinePermissionSet creates a named set and its operation mapping
// atomically. Repeated calls with the same name are rejected, not merged.
func (s *permissionService) DefinePermissionSet(input *DefinePermissionSetInput, creatorID uint) (uint, error) {
	if strings.TrimSpace(input.Name) == "" || len(input.MenuOperationIDs) == 0 {
		return 0, errs.Validationf("mandatory fields missing")
	}

	existing, err := s.repo.FindSetByName(input.Name)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, errs.Internal("database error checking permission set name", err)
	}
	// Case-sensitive exact match; collations that fold case still only
	// conflict on the exact name.
	if existing != nil && existing.Name == input.Name {
		return 0, errs.Conflictf("permission set name '%s' already exists", input.Name)
	}

	set := models.PermissionSet{
		Name:        input.Name,
		Description: input.Description,
		CreatedBy:   creatorID,
	}
	if err := s.repo.CreatePermissionSet(&set, input.MenuOperationIDs); err != nil {
		// Case-folding collations can reject a name the exact-match check let
		// through; the unique index is the final arbiter either way.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, errs.Conflictf("permission set name '%s' already exists", input.Name)
		}
		return 0, errs.Internal("failed to create permission set", err)
	}
	return set.ID, nil
}

// UpdatePermissionSet replaces the metadata and the full operation mapping
// of an existing set. Stale mappings never survive.
func (s *permissionService) UpdatePermissionSet(id uint, input *DefinePermissionSetInput) error {
	if id == 0 || strings.TrimSpace(input.Name) == "" || len(input.MenuOperationIDs) == 0 {
		return errs.Validationf("mandatory fields missing")
	}

	set, err := s.repo.FindSetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NotFoundf("permission set not found")
		}
		return errs.Internal("database error retrieving permission set", err)
	}

	set.Name = input.Name
	set.Description = input.Description
	if err := s.repo.UpdatePermissionSet(set, input.MenuOperationIDs); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.Conflictf("permission set name '%s' already exists", input.Name)
		}
		return errs.Internal("failed to update permission set", err)
	}
	return nil
}

// GrantPermissionSet appends a grant of a set to a user. Duplicate identical
// grants are legal.
func (s *permissionService) GrantPermissionSet(userID, permissionSetID, grantedBy uint) error {
	if _, err := s.repo.FindUserByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NotFoundf("user not found")
		}
		return errs.Internal("database error retrieving user", err)
	}
	if _, err := s.repo.FindSetByID(permissionSetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NotFoundf("permission set not found")
		}
		return errs.Internal("database error retrieving permission set", err)
	}

	grant := models.UserPermissionGrant{
		UserID:          userID,
		PermissionSetID: permissionSetID,
		GrantedBy:       grantedBy,
	}
	if err := s.repo.CreateGrant(&grant); err != nil {
		return errs.Internal("failed to grant permission set", err)
	}
	return nil
}

// effectiveNode accumulates grants under one top-level menu before the tree
// is materialized.
type effectiveNode struct {
	menuID     uint
	name       string
	sequence   *int
	operations []GrantedOperation
	submenus   map[uint]*effectiveSubnode
}

type effectiveSubnode struct {
	menuID     uint
	name       string
	sequence   *int
	operations []GrantedOperation
}

// EffectivePermissions merges every permission set the user holds into one
// tree keyed by top-level menu. Built in two passes: group by menu id, then
// sort-and-materialize, so the output never depends on map iteration order.
func (s *permissionService) EffectivePermissions(userID uint) ([]MenuPermissions, error) {
	rows, err := s.repo.GrantRowsForUser(userID)
	if err != nil {
		return nil, errs.Internal("database error aggregating permissions", err)
	}
	if len(rows) == 0 {
		return nil, errs.NotFoundf("no permissions found for user")
	}

	// Pass 1: group by top-level menu id. A row whose menu has a parent is
	// attached as a submenu grant under that parent.
	nodes := make(map[uint]*effectiveNode)
	for _, row := range rows {
		op := GrantedOperation{Operation: row.Operation, GrantedAt: row.GrantedAt}

		if row.ParentID == nil {
			node := nodes[row.MenuID]
			if node == nil {
				node = &effectiveNode{
					menuID:   row.MenuID,
					name:     row.MenuName,
					sequence: row.MenuSequence,
					submenus: make(map[uint]*effectiveSubnode),
				}
				nodes[row.MenuID] = node
			}
			node.operations = append(node.operations, op)
			continue
		}

		parentID := *row.ParentID
		node := nodes[parentID]
		if node == nil {
			parentName := ""
			if row.ParentName != nil {
				parentName = *row.ParentName
			}
			node = &effectiveNode{
				menuID:   parentID,
				name:     parentName,
				sequence: row.ParentSequence,
				submenus: make(map[uint]*effectiveSubnode),
			}
			nodes[parentID] = node
		}
		sub := node.submenus[row.MenuID]
		if sub == nil {
			sub = &effectiveSubnode{
				menuID:   row.MenuID,
				name:     row.MenuName,
				sequence: row.MenuSequence,
			}
			node.submenus[row.MenuID] = sub
		}
		sub.operations = append(sub.operations, op)
	}

	// Pass 2: sort and materialize.
	ordered := make([]*effectiveNode, 0, len(nodes))
	for _, node := range nodes {
		ordered = append(ordered, node)
	}
	sort.Slice(ordered, func(i, j int) bool {
		si, sj := sequenceOrSentinel(ordered[i].sequence), sequenceOrSentinel(ordered[j].sequence)
		if si != sj {
			return si < sj
		}
		return ordered[i].menuID < ordered[j].menuID
	})

	tree := make([]MenuPermissions, 0, len(ordered))
	for _, node := range ordered {
		entry := MenuPermissions{
			ParentMenu:     node.name,
			SequenceNumber: node.sequence,
			Operations:     node.operations,
		}
		if len(node.submenus) > 0 {
			subs := make([]*effectiveSubnode, 0, len(node.submenus))
			for _, sub := range node.submenus {
				subs = append(subs, sub)
			}
			sort.Slice(subs, func(i, j int) bool {
				si, sj := sequenceOrSentinel(subs[i].sequence), sequenceOrSentinel(subs[j].sequence)
				if si != sj {
					return si < sj
				}
				return subs[i].menuID < subs[j].menuID
			})
			for _, sub := range subs {
				entry.Submenus = append(entry.Submenus, SubmenuPermissions{
					Submenu:        sub.name,
					SequenceNumber: sub.sequence,
					Operations:     sub.operations,
				})
			}
		}
		tree = append(tree, entry)
	}
	return tree, nil
}

// GrantableMenuOperations lists every menu/operation pair. A menu with no
// parent is reported as its own parent label with the submenu field omitted.
func (s *permissionService) GrantableMenuOperations() ([]MenuOperationEntry, error) {
	rows, err := s.repo.MenuOperationRows()
	if err != nil {
		return nil, errs.Internal("database error listing menu operations", err)
	}

	entries := make([]MenuOperationEntry, 0, len(rows))
	for _, row := range rows {
		entry := MenuOperationEntry{
			MenuOperationID: row.MenuOperationID,
			Operation:       row.Operation,
		}
		if row.ParentID == nil {
			entry.ParentMenu = row.MenuName
		} else {
			if row.ParentName != nil {
				entry.ParentMenu = *row.ParentName
			}
			entry.Submenu = row.MenuName
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// PermissionSetsWithOperations lists every set with its operations grouped
// by parent-menu label, using the same flattening rule as
// GrantableMenuOperations. When a parent carries both direct grants and
// submenu grants, the direct operations appear under the parent's own name
// inside the submenu map.
func (s *permissionService) PermissionSetsWithOperations() ([]PermissionSetEntry, error) {
	rows, err := s.repo.SetOperationRows()
	if err != nil {
		return nil, errs.Internal("database error listing permission sets", err)
	}

	type setAccum struct {
		entry PermissionSetEntry
		// direct[parent] and nested[parent][submenu] keep grouping stable
		// before the heterogeneous map is materialized.
		direct       map[string][]string
		nested       map[string]map[string][]string
		parentOrder  []string
		submenuOrder map[string][]string
	}

	var order []uint
	sets := make(map[uint]*setAccum)
	for _, row := range rows {
		acc := sets[row.SetID]
		if acc == nil {
			acc = &setAccum{
				entry: PermissionSetEntry{
					PermissionID:   row.SetID,
					PermissionName: row.SetName,
					Description:    row.Description,
					Permissions:    make(map[string]interface{}),
				},
				direct:       make(map[string][]string),
				nested:       make(map[string]map[string][]string),
				submenuOrder: make(map[string][]string),
			}
			sets[row.SetID] = acc
			order = append(order, row.SetID)
		}

		if row.MenuName == nil || row.Operation == nil {
			continue // set without operations
		}

		parent := *row.MenuName
		submenu := ""
		if row.ParentID != nil && row.ParentName != nil {
			parent = *row.ParentName
			submenu = *row.MenuName
		}

		if _, seenDirect := acc.direct[parent]; !seenDirect {
			if _, seenNested := acc.nested[parent]; !seenNested {
				acc.parentOrder = append(acc.parentOrder, parent)
			}
		}

		if submenu == "" {
			acc.direct[parent] = append(acc.direct[parent], *row.Operation)
			continue
		}
		if acc.nested[parent] == nil {
			acc.nested[parent] = make(map[string][]string)
		}
		if _, seen := acc.nested[parent][submenu]; !seen {
			acc.submenuOrder[parent] = append(acc.submenuOrder[parent], submenu)
		}
		acc.nested[parent][submenu] = append(acc.nested[parent][submenu], *row.Operation)
	}

	entries := make([]PermissionSetEntry, 0, len(order))
	for _, setID := range order {
		acc := sets[setID]
		for _, parent := range acc.parentOrder {
			nested, hasNested := acc.nested[parent]
			if !hasNested {
				acc.entry.Permissions[parent] = acc.direct[parent]
				continue
			}
			grouped := make(map[string][]string, len(nested))
			for _, submenu := range acc.submenuOrder[parent] {
				grouped[submenu] = nested[submenu]
			}
			if direct, ok := acc.direct[parent]; ok {
				grouped[parent] = direct
			}
			acc.entry.Permissions[parent] = grouped
		}
		entries = append(entries, acc.entry)
	}
	return entries, nil
}

// AllUsers lists active users for the permission-management surface.
func (s *permissionService) AllUsers() ([]UserSummary, error) {
	users, err := s.repo.ActiveUsers()
	if err != nil {
		return nil, errs.Internal("database error listing users", err)
	}
	summaries := make([]UserSummary, 0, len(users))
	for _, u := range users {
		summaries = append(summaries, UserSummary{
			ID:       u.ID,
			Name:     u.Name,
			Username: u.Username,
			Role:     u.Role,
		})
	}
	return summaries, nil
}

func sequenceOrSentinel(seq *int) int {
	if seq == nil {
		return sequenceSentinel
	}
	return *seq
}
