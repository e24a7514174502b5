package mysql

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"figurestore/pkg/domain/model"
)

type sqlxCollection struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

type collectionRepository struct {
	tx *sqlx.Tx
}

func (r *collectionRepository) NextID() (uuid.UUID, error) { return uuid.NewRandom() }

func (r *collectionRepository) Create(ctx context.Context, collection *model.Collection) error {
	_, err := r.tx.ExecContext(ctx,
		"INSERT INTO collection (id, name, created_at) VALUES (?, ?, ?)",
		collection.ID, collection.Name, collection.CreatedAt,
	)
	return errors.Wrap(err, "failed to insert collection")
}

func (r *collectionRepository) Find(ctx context.Context, id uuid.UUID) (*model.Collection, error) {
	var row sqlxCollection
	err := get(ctx, r.tx, &row, model.ErrCollectionNotFound,
		"SELECT id, name, created_at FROM collection WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	collection := model.Collection(row)
	return &collection, nil
}

// CountByName relies on the case-insensitive collation of collection.name.
func (r *collectionRepository) CountByName(ctx context.Context, name string) (int, error) {
	var count int
	err := r.tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM collection WHERE name = ?", name)
	return count, errors.Wrap(err, "failed to count collections")
}

type sqlxProduct struct {
	ID           uuid.UUID       `db:"id"`
	CollectionID uuid.UUID       `db:"collection_id"`
	Number       int             `db:"number"`
	Name         string          `db:"name"`
	EditionName  string          `db:"edition_name"`
	Description  string          `db:"description"`
	ImageURL     string          `db:"image_url"`
	Price        decimal.Decimal `db:"price"`
	Available    int             `db:"available"`
	Special      bool            `db:"special"`
	Shine        bool            `db:"shine"`
	Version      int             `db:"version"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

const productColumns = "id, collection_id, number, name, edition_name, description, image_url, " +
	"price, available, special, shine, version, created_at, updated_at"

func (p sqlxProduct) toModel() *model.Product {
	return &model.Product{
		ID:           p.ID,
		CollectionID: p.CollectionID,
		Number:       p.Number,
		Name:         p.Name,
		EditionName:  p.EditionName,
		Description:  p.Description,
		ImageURL:     p.ImageURL,
		Price:        p.Price,
		Available:    p.Available,
		Special:      p.Special,
		Shine:        p.Shine,
		Version:      p.Version,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

type productRepository struct {
	tx *sqlx.Tx
}

func (r *productRepository) NextID() (uuid.UUID, error) { return uuid.NewRandom() }

func (r *productRepository) Create(ctx context.Context, p *model.Product) error {
	_, err := r.tx.ExecContext(ctx,
		"INSERT INTO product ("+productColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		p.ID, p.CollectionID, p.Number, p.Name, p.EditionName, p.Description, p.ImageURL,
		p.Price, p.Available, p.Special, p.Shine, p.Version, p.CreatedAt, p.UpdatedAt,
	)
	if isDuplicateEntry(err) {
		return model.ErrDuplicateProductNumber
	}
	return errors.Wrap(err, "failed to insert product")
}

func (r *productRepository) Update(ctx context.Context, p *model.Product) error {
	err := versionedUpdate(ctx, r.tx, "product", model.ErrProductNotFound, `
		UPDATE product SET
			collection_id = ?, number = ?, name = ?, edition_name = ?, description = ?, image_url = ?,
			price = ?, available = ?, special = ?, shine = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?`,
		p.CollectionID, p.Number, p.Name, p.EditionName, p.Description, p.ImageURL,
		p.Price, p.Available, p.Special, p.Shine, p.Version, p.UpdatedAt,
		p.ID, p.Version-1,
	)
	if isDuplicateEntry(errors.Cause(err)) {
		return model.ErrDuplicateProductNumber
	}
	return err
}

func (r *productRepository) Find(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.findOne(ctx, "SELECT "+productColumns+" FROM product WHERE id = ?", id)
}

func (r *productRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.findOne(ctx, "SELECT "+productColumns+" FROM product WHERE id = ? FOR UPDATE", id)
}

func (r *productRepository) FindByNumber(ctx context.Context, collectionID uuid.UUID, number int) (*model.Product, error) {
	return r.findOne(ctx, "SELECT "+productColumns+" FROM product WHERE collection_id = ? AND number = ?", collectionID, number)
}

func (r *productRepository) findOne(ctx context.Context, query string, args ...interface{}) (*model.Product, error) {
	var row sqlxProduct
	if err := get(ctx, r.tx, &row, model.ErrProductNotFound, query, args...); err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

type sqlxStockIntake struct {
	ID        uuid.UUID `db:"id"`
	ProductID uuid.UUID `db:"product_id"`
	Quantity  int       `db:"quantity"`
	CreatedAt time.Time `db:"created_at"`
}

type stockIntakeRepository struct {
	tx *sqlx.Tx
}

func (r *stockIntakeRepository) NextID() (uuid.UUID, error) { return uuid.NewRandom() }

func (r *stockIntakeRepository) Append(ctx context.Context, intake *model.StockIntake) error {
	_, err := r.tx.ExecContext(ctx,
		"INSERT INTO stock_intake (id, product_id, quantity, created_at) VALUES (?, ?, ?, ?)",
		intake.ID, intake.ProductID, intake.Quantity, intake.CreatedAt,
	)
	return errors.Wrap(err, "failed to insert stock intake")
}

func (r *stockIntakeRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.StockIntake, error) {
	var rows []sqlxStockIntake
	err := r.tx.SelectContext(ctx, &rows,
		"SELECT id, product_id, quantity, created_at FROM stock_intake WHERE product_id = ? ORDER BY created_at",
		productID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query stock intakes")
	}

	intakes := make([]model.StockIntake, 0, len(rows))
	for _, row := range rows {
		intakes = append(intakes, model.StockIntake(row))
	}
	return intakes, nil
}
