package storage

import (
	"bytes"
	"context"
	"errors"
	"io"

	"geophoto/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ErrNotFound covers both a malformed identifier and an identifier that does
// not resolve to a stored photo.
var ErrNotFound = errors.New("photo not found")

// PhotoStore is the blob+metadata boundary the pipeline and query service
// depend on. One SavePhoto call durably creates the blob and its metadata
// together; the store assigns the identifier.
type PhotoStore interface {
	SavePhoto(data []byte, meta model.PhotoMetadata) (string, error)
	OpenPhoto(id string) (io.ReadCloser, *model.PhotoMetadata, error)
	SearchPhotosByText(query string) ([]model.PhotoMetadata, error)
	SearchPhotosByLocation(long float64, lat float64) ([]model.PhotoMetadata, error)
}

type MongoPhotoDB struct {
	mongoClient *mongo.Client
	bucket      *gridfs.Bucket
	files       *mongo.Collection
	log         *zap.Logger
}

func NewMongoPhotoDB(log *zap.Logger) *MongoPhotoDB {
	return &MongoPhotoDB{log: log}
}

// Connect establishes the client, opens the GridFS bucket and ensures the
// text and 2dsphere indexes the search queries rely on.
func (db *MongoPhotoDB) Connect(connectionString, databaseName, bucketName string) error {
	var err error

	db.mongoClient, err = mongo.Connect(context.TODO(), options.Client().ApplyURI(connectionString))
	if err != nil {
		return err
	}

	if err = db.mongoClient.Ping(context.TODO(), nil); err != nil {
		return err
	}

	database := db.mongoClient.Database(databaseName)
	db.bucket, err = gridfs.NewBucket(database, options.GridFSBucket().SetName(bucketName))
	if err != nil {
		return err
	}
	db.files = db.bucket.GetFilesCollection()

	_, err = db.files.Indexes().CreateMany(context.TODO(), []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "metadata.name", Value: "text"},
			{Key: "metadata.description", Value: "text"},
		}},
		{Keys: bson.D{{Key: "metadata.lonlat", Value: "2dsphere"}}},
	})
	if err != nil {
		return err
	}

	db.log.Info("connected to MongoDB",
		zap.String("database", databaseName),
		zap.String("bucket", bucketName))
	return nil
}

func (db *MongoPhotoDB) Close() error {
	if db.mongoClient != nil {
		if err := db.mongoClient.Disconnect(context.TODO()); err != nil {
			return err
		}
		db.log.Info("disconnected from MongoDB")
	}
	return nil
}

// SavePhoto uploads the photo bytes with its metadata as one GridFS file and
// returns the hex form of the identifier Mongo assigned.
func (db *MongoPhotoDB) SavePhoto(data []byte, meta model.PhotoMetadata) (string, error) {
	opts := options.GridFSUpload().SetMetadata(meta)

	name := meta.Name
	if name == "" {
		name = "photo"
	}

	oid, err := db.bucket.UploadFromStream(name, bytes.NewReader(data), opts)
	if err != nil {
		return "", err
	}

	db.log.Info("photo saved",
		zap.String("id", oid.Hex()),
		zap.Int64("size", meta.Size))
	return oid.Hex(), nil
}

// OpenPhoto resolves an identifier to a download stream plus the stored
// metadata. A malformed or unknown id yields ErrNotFound.
func (db *MongoPhotoDB) OpenPhoto(id string) (io.ReadCloser, *model.PhotoMetadata, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil, ErrNotFound
	}

	stream, err := db.bucket.OpenDownloadStream(oid)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	var meta model.PhotoMetadata
	if raw := stream.GetFile().Metadata; raw != nil {
		if err := bson.Unmarshal(raw, &meta); err != nil {
			stream.Close()
			return nil, nil, err
		}
	}
	meta.ID = oid

	return stream, &meta, nil
}

// SearchPhotosByText runs a $text match over metadata.name and
// metadata.description, ordered by text score.
func (db *MongoPhotoDB) SearchPhotosByText(query string) ([]model.PhotoMetadata, error) {
	filter := bson.D{{Key: "$text", Value: bson.D{{Key: "$search", Value: query}}}}
	opts := options.Find().
		SetSort(bson.D{{Key: "score", Value: bson.D{{Key: "$meta", Value: "textScore"}}}})

	return db.findPhotos(filter, opts)
}

// SearchPhotosByLocation returns photos ordered by increasing spherical
// distance from the query point. No distance cutoff.
func (db *MongoPhotoDB) SearchPhotosByLocation(long float64, lat float64) ([]model.PhotoMetadata, error) {
	filter := bson.D{
		{Key: "metadata.lonlat", Value: bson.D{
			{Key: "$near", Value: bson.D{
				{Key: "$geometry", Value: model.NewGeoPoint(long, lat)},
			}},
		}},
	}

	return db.findPhotos(filter, nil)
}

// gridFile mirrors the parts of the GridFS files document the queries read.
type gridFile struct {
	ID       primitive.ObjectID  `bson:"_id"`
	Length   int64               `bson:"length"`
	Metadata model.PhotoMetadata `bson:"metadata"`
}

func (db *MongoPhotoDB) findPhotos(filter bson.D, opts *options.FindOptions) ([]model.PhotoMetadata, error) {
	var cursor *mongo.Cursor
	var err error

	if opts != nil {
		cursor, err = db.files.Find(context.TODO(), filter, opts)
	} else {
		cursor, err = db.files.Find(context.TODO(), filter)
	}
	if err != nil {
		return nil, err
	}

	var files []gridFile
	if err = cursor.All(context.TODO(), &files); err != nil {
		return nil, err
	}

	photos := make([]model.PhotoMetadata, 0, len(files))
	for _, f := range files {
		meta := f.Metadata
		meta.ID = f.ID
		if meta.Size == 0 {
			meta.Size = f.Length
		}
		photos = append(photos, meta)
	}

	return photos, nil
}
