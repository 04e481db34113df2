package postgres

import (
	"context"
	"errors"
	"fmt"

	"vas-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// CatalogRepo implements ports.CatalogRepository.
type CatalogRepo struct {
	pool Pool
}

// NewCatalogRepo creates a new CatalogRepo.
func NewCatalogRepo(pool Pool) *CatalogRepo {
	return &CatalogRepo{pool: pool}
}

// ActiveCategories fetches every active product category.
func (r *CatalogRepo) ActiveCategories(ctx context.Context) ([]domain.ProductCategory, error) {
	query := `SELECT id, name, category_code, description, is_active
		FROM vas_product_categories WHERE is_active = TRUE ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list product categories: %w", err)
	}
	defer rows.Close()

	var out []domain.ProductCategory
	for rows.Next() {
		var c domain.ProductCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.CategoryCode, &c.Description, &c.IsActive); err != nil {
			return nil, fmt.Errorf("scan product category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product categories: %w", err)
	}
	return out, nil
}

const productColumns = `p.id, p.product_name, p.product_code, p.description, c.category_code,
	p.preferred_provider_account_id, p.backup_provider_account_id,
	COALESCE(pr.provider_code, ''), p.is_active`

const productJoins = `FROM vas_products p
	JOIN vas_product_categories c ON c.id = p.category_id
	LEFT JOIN vas_provider_accounts pa ON pa.id = p.preferred_provider_account_id
	LEFT JOIN vas_providers pr ON pr.id = pa.provider_id`

func scanProduct(row pgx.Row) (*domain.Product, error) {
	p := &domain.Product{}
	err := row.Scan(
		&p.ID, &p.ProductName, &p.ProductCode, &p.Description, &p.CategoryCode,
		&p.PreferredProviderAccountID, &p.BackupProviderAccountID,
		&p.PreferredProviderCode, &p.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// ProductsByCategory fetches active products under a category code.
func (r *CatalogRepo) ProductsByCategory(ctx context.Context, categoryCode string) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` ` + productJoins + `
		WHERE c.category_code = $1 AND p.is_active = TRUE ORDER BY p.product_name`

	rows, err := r.pool.Query(ctx, query, categoryCode)
	if err != nil {
		return nil, fmt.Errorf("list products by category: %w", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		var p domain.Product
		err := rows.Scan(
			&p.ID, &p.ProductName, &p.ProductCode, &p.Description, &p.CategoryCode,
			&p.PreferredProviderAccountID, &p.BackupProviderAccountID,
			&p.PreferredProviderCode, &p.IsActive,
		)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return out, nil
}

// ProductByCode fetches an active product by its product code.
func (r *CatalogRepo) ProductByCode(ctx context.Context, productCode string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` ` + productJoins + `
		WHERE p.product_code = $1 AND p.is_active = TRUE`

	p, err := scanProduct(r.pool.QueryRow(ctx, query, productCode))
	if err != nil {
		return nil, fmt.Errorf("get product by code: %w", err)
	}
	return p, nil
}

const dataPackageColumns = `dp.id, dp.product_id, p.product_code, dp.data_code, dp.tariff_id, dp.network,
	dp.amount, dp.description, dp.duration, dp.value, dp.plan_name, dp.is_active, dp.created_at`

// DataBundles fetches the active bundles under a product, cheapest first.
func (r *CatalogRepo) DataBundles(ctx context.Context, productCode string) ([]domain.DataPackage, error) {
	query := `SELECT ` + dataPackageColumns + `
		FROM vas_data_packages dp
		JOIN vas_products p ON p.id = dp.product_id
		WHERE p.product_code = $1 AND dp.is_active = TRUE
		ORDER BY dp.amount ASC`

	rows, err := r.pool.Query(ctx, query, productCode)
	if err != nil {
		return nil, fmt.Errorf("list data bundles: %w", err)
	}
	defer rows.Close()

	var out []domain.DataPackage
	for rows.Next() {
		var dp domain.DataPackage
		err := rows.Scan(
			&dp.ID, &dp.ProductID, &dp.ProductCode, &dp.DataCode, &dp.TariffID, &dp.Network,
			&dp.Amount, &dp.Description, &dp.Duration, &dp.Value, &dp.PlanName, &dp.IsActive, &dp.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan data bundle: %w", err)
		}
		out = append(out, dp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate data bundles: %w", err)
	}
	return out, nil
}

// DataPackage fetches an active bundle by product and data code.
func (r *CatalogRepo) DataPackage(ctx context.Context, productCode, dataCode string) (*domain.DataPackage, error) {
	query := `SELECT ` + dataPackageColumns + `
		FROM vas_data_packages dp
		JOIN vas_products p ON p.id = dp.product_id
		WHERE p.product_code = $1 AND dp.data_code = $2 AND dp.is_active = TRUE`

	dp := &domain.DataPackage{}
	err := r.pool.QueryRow(ctx, query, productCode, dataCode).Scan(
		&dp.ID, &dp.ProductID, &dp.ProductCode, &dp.DataCode, &dp.TariffID, &dp.Network,
		&dp.Amount, &dp.Description, &dp.Duration, &dp.Value, &dp.PlanName, &dp.IsActive, &dp.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get data package: %w", err)
	}
	return dp, nil
}

// ProviderPlanCode resolves the plan code dispatched upstream for a bundle
// routed through the given provider. Returns "" when no active mapping exists.
func (r *CatalogRepo) ProviderPlanCode(ctx context.Context, dataPackageID int64, providerCode string) (string, error) {
	query := `SELECT dpp.plan_code
		FROM vas_data_package_providers dpp
		JOIN vas_providers pr ON pr.id = dpp.provider_id
		WHERE dpp.data_package_id = $1 AND pr.provider_code = $2 AND dpp.is_active = TRUE`

	var planCode string
	err := r.pool.QueryRow(ctx, query, dataPackageID, providerCode).Scan(&planCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get provider plan code: %w", err)
	}
	return planCode, nil
}
