package memory

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
)

const (
	tableCollection  = "collection"
	tableProduct     = "product"
	tableStockIntake = "stock_intake"
	tableDiscount    = "discount"
	tablePromotion   = "promotion"
	tableCart        = "cart"
	tableInvoice     = "invoice"
	tableReview      = "review"
	tableQuestion    = "question"

	indexID       = "id"
	indexName     = "name"
	indexNumber   = "number"
	indexProduct  = "product"
	indexCode     = "code"
	indexUser     = "user"
	indexTracking = "tracking"
	indexPair     = "user_product"
)

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableCollection: {
				Name: tableCollection,
				Indexes: map[string]*memdb.IndexSchema{
					indexID:   idIndex(),
					indexName: {Name: indexName, Indexer: &memdb.StringFieldIndex{Field: "Name", Lowercase: true}},
				},
			},
			tableProduct: {
				Name: tableProduct,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: idIndex(),
					indexNumber: {
						Name:   indexNumber,
						Unique: true,
						Indexer: &memdb.CompoundIndex{Indexes: []memdb.Indexer{
							&uuidFieldIndex{Field: "CollectionID"},
							&memdb.IntFieldIndex{Field: "Number"},
						}},
					},
				},
			},
			tableStockIntake: {
				Name: tableStockIntake,
				Indexes: map[string]*memdb.IndexSchema{
					indexID:      idIndex(),
					indexProduct: productIndex(),
				},
			},
			tableDiscount: {
				Name: tableDiscount,
				Indexes: map[string]*memdb.IndexSchema{
					indexID:   idIndex(),
					indexCode: {Name: indexCode, Unique: true, Indexer: &memdb.StringFieldIndex{Field: "Code"}},
				},
			},
			tablePromotion: {
				Name: tablePromotion,
				Indexes: map[string]*memdb.IndexSchema{
					indexID:      idIndex(),
					indexProduct: productIndex(),
				},
			},
			tableCart: {
				Name: tableCart,
				Indexes: map[string]*memdb.IndexSchema{
					indexID:   idIndex(),
					indexUser: userIndex(),
				},
			},
			tableInvoice: {
				Name: tableInvoice,
				Indexes: map[string]*memdb.IndexSchema{
					indexID:       idIndex(),
					indexUser:     userIndex(),
					indexTracking: {Name: indexTracking, Unique: true, Indexer: &memdb.StringFieldIndex{Field: "TrackingCode"}},
				},
			},
			tableReview: {
				Name: tableReview,
				Indexes: map[string]*memdb.IndexSchema{
					indexID:      idIndex(),
					indexProduct: productIndex(),
					indexPair: {
						Name:   indexPair,
						Unique: true,
						Indexer: &memdb.CompoundIndex{Indexes: []memdb.Indexer{
							&uuidFieldIndex{Field: "UserID"},
							&uuidFieldIndex{Field: "ProductID"},
						}},
					},
				},
			},
			tableQuestion: {
				Name: tableQuestion,
				Indexes: map[string]*memdb.IndexSchema{
					indexID:      idIndex(),
					indexProduct: productIndex(),
				},
			},
		},
	}
}

func idIndex() *memdb.IndexSchema {
	return &memdb.IndexSchema{Name: indexID, Unique: true, Indexer: &uuidFieldIndex{Field: "ID"}}
}

func productIndex() *memdb.IndexSchema {
	return &memdb.IndexSchema{Name: indexProduct, Indexer: &uuidFieldIndex{Field: "ProductID"}}
}

func userIndex() *memdb.IndexSchema {
	return &memdb.IndexSchema{Name: indexUser, Indexer: &uuidFieldIndex{Field: "UserID"}}
}

// uuidFieldIndex indexes a uuid.UUID field by its 16 raw bytes.
// memdb.UUIDFieldIndex only understands the string form.
type uuidFieldIndex struct {
	Field string
}

func (u *uuidFieldIndex) FromObject(obj interface{}) (bool, []byte, error) {
	fv := reflect.Indirect(reflect.ValueOf(obj)).FieldByName(u.Field)
	if !fv.IsValid() {
		return false, nil, fmt.Errorf("field '%s' for %#v is invalid", u.Field, obj)
	}
	id, ok := fv.Interface().(uuid.UUID)
	if !ok {
		return false, nil, fmt.Errorf("field '%s' for %#v is not a uuid.UUID", u.Field, obj)
	}
	if id == uuid.Nil {
		return false, nil, nil
	}
	return true, append([]byte(nil), id[:]...), nil
}

func (u *uuidFieldIndex) FromArgs(args ...interface{}) ([]byte, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("must provide only a single argument")
	}
	id, ok := args[0].(uuid.UUID)
	if !ok {
		return nil, fmt.Errorf("argument must be a uuid.UUID: %#v", args[0])
	}
	return append([]byte(nil), id[:]...), nil
}
