package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bundle-storefront/internal/core/domain"
)

const collectionName = "orders"

type orderDocument struct {
	ID               string               `bson:"orderId"`
	TransactionID    string               `bson:"transactionId"`
	CustomerName     string               `bson:"customerName"`
	Email            string               `bson:"email"`
	Phone            string               `bson:"phone"`
	Network          string               `bson:"network"`
	Bundle           string               `bson:"bundle"`
	Amount           primitive.Decimal128 `bson:"amount"`
	GatewayReference string               `bson:"paystackReference"`
	DateTime         string               `bson:"dateTime"`
	Status           string               `bson:"status"`
	CreatedAt        time.Time            `bson:"createdAt"`
	UpdatedAt        time.Time            `bson:"updatedAt"`
}

func toDocument(o domain.Order) (orderDocument, error) {
	amount, err := primitive.ParseDecimal128(o.Amount.String())
	if err != nil {
		return orderDocument{}, fmt.Errorf("convert amount: %w", err)
	}
	return orderDocument{
		ID:               o.ID,
		TransactionID:    o.TransactionID,
		CustomerName:     o.CustomerName,
		Email:            o.Email,
		Phone:            o.Phone,
		Network:          o.Network,
		Bundle:           o.Bundle,
		Amount:           amount,
		GatewayReference: o.GatewayReference,
		DateTime:         o.DateTime,
		Status:           string(o.Status),
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}, nil
}

func (d orderDocument) toDomain() (domain.Order, error) {
	amount, err := decimal.NewFromString(d.Amount.String())
	if err != nil {
		return domain.Order{}, fmt.Errorf("parse amount of %s: %w", d.TransactionID, err)
	}
	return domain.Order{
		ID:               d.ID,
		TransactionID:    d.TransactionID,
		CustomerName:     d.CustomerName,
		Email:            d.Email,
		Phone:            d.Phone,
		Network:          d.Network,
		Bundle:           d.Bundle,
		Amount:           amount,
		GatewayReference: d.GatewayReference,
		DateTime:         d.DateTime,
		Status:           domain.OrderStatus(d.Status),
		CreatedAt:        d.CreatedAt.UTC(),
		UpdatedAt:        d.UpdatedAt.UTC(),
	}, nil
}

// Repository is an implementation of the OrderRepository port for MongoDB.
type Repository struct {
	client *mongo.Client
	orders *mongo.Collection
}

// NewRepository connects, pings and creates the unique index on transactionId.
func NewRepository(ctx context.Context, uri, database string) (*Repository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("unable to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("unable to ping mongodb: %w", err)
	}

	coll := client.Database(database).Collection(collectionName)
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "transactionId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("unable to create indexes: %w", err)
	}

	return &Repository{client: client, orders: coll}, nil
}

func (r *Repository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

func (r *Repository) Insert(ctx context.Context, o domain.Order) error {
	doc, err := toDocument(o)
	if err != nil {
		return err
	}
	if _, err := r.orders.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateTransaction
		}
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

func (r *Repository) List(ctx context.Context) ([]domain.Order, error) {
	return r.find(ctx, bson.D{})
}

func (r *Repository) FindByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	return r.find(ctx, bson.D{{Key: "status", Value: string(status)}})
}

func (r *Repository) UpdateStatus(ctx context.Context, transactionID string, from, to domain.OrderStatus) error {
	if !domain.CanTransition(from, to) {
		return domain.ErrInvalidTransition
	}

	res, err := r.orders.UpdateOne(ctx,
		bson.D{{Key: "transactionId", Value: transactionID}, {Key: "status", Value: string(from)}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "status", Value: string(to)},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}}},
	)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	err = r.orders.FindOne(ctx, bson.D{{Key: "transactionId", Value: transactionID}}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check order: %w", err)
	}
	return domain.ErrInvalidTransition
}

func (r *Repository) find(ctx context.Context, filter bson.D) ([]domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.orders.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	var docs []orderDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}

	orders := make([]domain.Order, 0, len(docs))
	for _, d := range docs {
		o, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}
