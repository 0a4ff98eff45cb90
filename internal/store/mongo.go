package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
	"go.uber.org/zap"

	"github.com/eventboard/app/internal/models"
)

const defaultDatabase = "eventboard"

// Mongo implements Store on top of a MongoDB database. Change streams back
// the subscriptions, so the deployment must be a replica set (a single-node
// replica set is fine for development).
type Mongo struct {
	db        *mongo.Database
	namespace string
	log       *zap.Logger
}

// Connect dials MongoDB and verifies the connection. The database name is
// taken from the URI, falling back to "eventboard".
func Connect(ctx context.Context, uri, namespace string, log *zap.Logger) (*Mongo, error) {
	connDSN, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, fmt.Errorf("parse mongo uri: %w", err)
	}

	client, err := mongo.Connect(ctx,
		options.Client().ApplyURI(uri),
		options.Client().SetConnectTimeout(10*time.Second),
		options.Client().SetServerSelectionTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	dbName := connDSN.Database
	if dbName == "" {
		dbName = defaultDatabase
	}
	return &Mongo{db: client.Database(dbName), namespace: namespace, log: log}, nil
}

// collectionName maps a logical path segment under the deployment's
// namespace prefix onto a flat collection name.
func collectionName(namespace, kind string) string {
	return namespace + "_" + kind
}

// rsvpDocID keys the (event, user) pair, mirroring the nested path
// <namespace>/events/<eventID>/rsvps/<userID>.
func rsvpDocID(eventID, userID string) string {
	return eventID + "/" + userID
}

func (m *Mongo) events() *mongo.Collection {
	return m.db.Collection(collectionName(m.namespace, "events"))
}

func (m *Mongo) banners() *mongo.Collection {
	return m.db.Collection(collectionName(m.namespace, "banners"))
}

func (m *Mongo) rsvps() *mongo.Collection {
	return m.db.Collection(collectionName(m.namespace, "rsvps"))
}

// SubscribeEvents re-reads and delivers the full events collection on every
// change. RSVP changes also trigger a delivery, so attendance updates reach
// subscribers without waiting for an unrelated event mutation.
func (m *Mongo) SubscribeEvents(ctx context.Context, fn EventsSnapshotFunc, errFn ErrorFunc) (Unsubscribe, error) {
	emit := func(ctx context.Context) error {
		events, err := m.listEvents(ctx)
		if err != nil {
			return err
		}
		fn(ctx, events)
		return nil
	}
	return m.watch(ctx, emit, errFn, m.events(), m.rsvps())
}

// SubscribeBanners delivers the full banner list, newest first, on every
// change to the banners collection.
func (m *Mongo) SubscribeBanners(ctx context.Context, fn BannersSnapshotFunc, errFn ErrorFunc) (Unsubscribe, error) {
	emit := func(ctx context.Context) error {
		banners, err := m.listBanners(ctx)
		if err != nil {
			return err
		}
		fn(ctx, banners)
		return nil
	}
	return m.watch(ctx, emit, errFn, m.banners())
}

// watch emits once up front, then re-emits whenever any of the given
// collections change. A stream failure is delivered to errFn once and the
// subscription is not re-established.
func (m *Mongo) watch(ctx context.Context, emit func(context.Context) error, errFn ErrorFunc, colls ...*mongo.Collection) (Unsubscribe, error) {
	ctx, cancel := context.WithCancel(ctx)

	streams := make([]*mongo.ChangeStream, 0, len(colls))
	fail := func(err error) (Unsubscribe, error) {
		cancel()
		for _, cs := range streams {
			cs.Close(context.Background())
		}
		return nil, err
	}

	for _, coll := range colls {
		cs, err := coll.Watch(ctx, mongo.Pipeline{})
		if err != nil {
			return fail(fmt.Errorf("watch %s: %w", coll.Name(), err))
		}
		streams = append(streams, cs)
	}

	if err := emit(ctx); err != nil {
		return fail(err)
	}

	changes := make(chan struct{}, 1)
	failed := make(chan error, len(streams))
	for _, cs := range streams {
		go func(cs *mongo.ChangeStream) {
			defer cs.Close(context.Background())
			for cs.Next(ctx) {
				select {
				case changes <- struct{}{}:
				default:
				}
			}
			if err := cs.Err(); err != nil && ctx.Err() == nil {
				failed <- err
			}
		}(cs)
	}

	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-failed:
				m.log.Error("change stream failed", zap.Error(err))
				if errFn != nil {
					errFn(err)
				}
				return
			case <-changes:
				if err := emit(ctx); err != nil {
					if ctx.Err() != nil {
						return
					}
					m.log.Error("snapshot read failed", zap.Error(err))
					if errFn != nil {
						errFn(err)
					}
					return
				}
			}
		}
	}()

	return func() { cancel() }, nil
}

func (m *Mongo) listEvents(ctx context.Context) ([]*models.Event, error) {
	findOptions := options.Find().SetSort(bson.M{"created_at": 1})
	cur, err := m.events().Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer cur.Close(ctx)

	events := []*models.Event{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return events, nil
}

func (m *Mongo) listBanners(ctx context.Context) ([]*models.Banner, error) {
	findOptions := options.Find().SetSort(bson.M{"created_at": -1})
	cur, err := m.banners().Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("list banners: %w", err)
	}
	defer cur.Close(ctx)

	banners := []*models.Banner{}
	if err := cur.All(ctx, &banners); err != nil {
		return nil, fmt.Errorf("decode banners: %w", err)
	}
	return banners, nil
}

// CreateEvent inserts a new event, assigning an identifier and creation
// timestamp if unset.
func (m *Mongo) CreateEvent(ctx context.Context, event *models.Event) (*models.Event, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if _, err := m.events().InsertOne(ctx, event); err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

// DeleteEvent removes the event and its RSVP subcollection.
func (m *Mongo) DeleteEvent(ctx context.Context, eventID string) error {
	if _, err := m.events().DeleteOne(ctx, bson.M{"_id": eventID}); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if _, err := m.rsvps().DeleteMany(ctx, bson.M{"event_id": eventID}); err != nil {
		return fmt.Errorf("delete event rsvps: %w", err)
	}
	return nil
}

// ListRSVPs reads all RSVP records for one event.
func (m *Mongo) ListRSVPs(ctx context.Context, eventID string) ([]*models.RSVP, error) {
	cur, err := m.rsvps().Find(ctx, bson.M{"event_id": eventID})
	if err != nil {
		return nil, fmt.Errorf("list rsvps for event %s: %w", eventID, err)
	}
	defer cur.Close(ctx)

	rsvps := []*models.RSVP{}
	if err := cur.All(ctx, &rsvps); err != nil {
		return nil, fmt.Errorf("decode rsvps for event %s: %w", eventID, err)
	}
	return rsvps, nil
}

// GetRSVP retrieves one user's RSVP for one event, or ErrNotFound.
func (m *Mongo) GetRSVP(ctx context.Context, eventID, userID string) (*models.RSVP, error) {
	rsvp := &models.RSVP{}
	err := m.rsvps().FindOne(ctx, bson.M{"_id": rsvpDocID(eventID, userID)}).Decode(rsvp)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get rsvp: %w", err)
	}
	return rsvp, nil
}

// PutRSVP upserts the (event, user) record. Last write wins.
func (m *Mongo) PutRSVP(ctx context.Context, rsvp *models.RSVP) error {
	if rsvp.CreatedAt.IsZero() {
		rsvp.CreatedAt = time.Now().UTC()
	}
	doc := bson.M{
		"_id":        rsvpDocID(rsvp.EventID, rsvp.UserID),
		"event_id":   rsvp.EventID,
		"user_id":    rsvp.UserID,
		"created_at": rsvp.CreatedAt,
	}
	_, err := m.rsvps().ReplaceOne(ctx, bson.M{"_id": doc["_id"]}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("put rsvp: %w", err)
	}
	return nil
}

// DeleteRSVP removes the (event, user) record. Deleting a record that does
// not exist is not an error; the toggle is last-write-wins.
func (m *Mongo) DeleteRSVP(ctx context.Context, eventID, userID string) error {
	if _, err := m.rsvps().DeleteOne(ctx, bson.M{"_id": rsvpDocID(eventID, userID)}); err != nil {
		return fmt.Errorf("delete rsvp: %w", err)
	}
	return nil
}

// CreateBanner inserts a new banner, assigning an identifier and creation
// timestamp if unset.
func (m *Mongo) CreateBanner(ctx context.Context, banner *models.Banner) (*models.Banner, error) {
	if banner.ID == "" {
		banner.ID = uuid.NewString()
	}
	if banner.CreatedAt.IsZero() {
		banner.CreatedAt = time.Now().UTC()
	}
	if _, err := m.banners().InsertOne(ctx, banner); err != nil {
		return nil, fmt.Errorf("insert banner: %w", err)
	}
	return banner, nil
}

// DeleteBanner removes a banner by id.
func (m *Mongo) DeleteBanner(ctx context.Context, bannerID string) error {
	if _, err := m.banners().DeleteOne(ctx, bson.M{"_id": bannerID}); err != nil {
		return fmt.Errorf("delete banner: %w", err)
	}
	return nil
}

// Ping verifies the underlying connection.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.db.Client().Ping(ctx, readpref.Primary())
}

// Close disconnects from MongoDB.
func (m *Mongo) Close(ctx context.Context) error {
	return m.db.Client().Disconnect(ctx)
}
