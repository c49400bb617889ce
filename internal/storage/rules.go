package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/flujo/flujo/internal/model"
)

// GetActiveMerchantRules retrieves an owner's active rules ordered by
// ascending priority, ID as the tiebreak. Lower priority values win first.
func (s *SQLiteStorage) GetActiveMerchantRules(ctx context.Context, owner string) ([]model.MerchantRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(owner, "owner"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, owner, pattern, is_regex, priority, category_id, subcategory_id,
			is_active, created_at, updated_at
		FROM merchant_rules
		WHERE owner = ? AND is_active = 1
		ORDER BY priority ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to get active merchant rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ruleList []model.MerchantRule
	for rows.Next() {
		var rule model.MerchantRule
		err := rows.Scan(
			&rule.ID, &rule.Owner, &rule.Pattern, &rule.IsRegex, &rule.Priority,
			&rule.CategoryID, &rule.SubcategoryID, &rule.IsActive,
			&rule.CreatedAt, &rule.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan merchant rule: %w", err)
		}
		ruleList = append(ruleList, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating merchant rules: %w", err)
	}

	return ruleList, nil
}

// CreateMerchantRule inserts a rule. The pipeline itself never calls this;
// it exists for tests and for seeding through the admin surface.
func (s *SQLiteStorage) CreateMerchantRule(ctx context.Context, rule *model.MerchantRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if rule == nil {
		return fmt.Errorf("merchant rule cannot be nil")
	}
	if err := validateString(rule.Owner, "owner"); err != nil {
		return err
	}
	if err := validateString(rule.Pattern, "pattern"); err != nil {
		return err
	}

	query := `
		INSERT INTO merchant_rules (
			owner, pattern, is_regex, priority, category_id, subcategory_id, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		rule.Owner, rule.Pattern, rule.IsRegex, rule.Priority,
		rule.CategoryID, rule.SubcategoryID, rule.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to create merchant rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get merchant rule ID: %w", err)
	}

	rule.ID = id
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = time.Now()
	return nil
}

// CreateCategory inserts a category, optionally under a parent.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, name string, parentID *int64) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO categories (name, parent_id, is_active) VALUES (?, ?, 1)",
		name, parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get category ID: %w", err)
	}

	return &model.Category{
		ID:        id,
		Name:      name,
		ParentID:  parentID,
		IsActive:  true,
		CreatedAt: time.Now(),
	}, nil
}
