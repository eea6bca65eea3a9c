package dbmongo

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"coursechat/internal/common"
)

// AttachmentStorage stores message attachments in GridFS and hands out
// durable URLs served by the media facade.
type AttachmentStorage struct {
	gridFS  *gridfs.Bucket
	baseURL string
}

func NewAttachmentStorage(mongoClient *MongoClient, baseURL string) *AttachmentStorage {
	return &AttachmentStorage{
		gridFS:  mongoClient.GridFS,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type StoredFile struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mime_type"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Upload implements common.FileStorage.
func (as *AttachmentStorage) Upload(ctx context.Context, file common.UploadFile) (string, error) {
	stored, err := as.Put(ctx, file.Name, file.Mime, file.Content)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/media/%s", as.baseURL, stored.ID), nil
}

// Put streams an attachment into GridFS.
func (as *AttachmentStorage) Put(ctx context.Context, filename, mimeType string, content io.Reader) (*StoredFile, error) {
	metadata := bson.M{
		"mime_type":   mimeType,
		"uploaded_at": time.Now(),
	}

	opts := options.GridFSUpload().SetMetadata(metadata)
	stream, err := as.gridFS.OpenUploadStream(filename, opts)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	defer stream.Close()

	size, err := io.Copy(stream, content)
	if err != nil {
		return nil, fmt.Errorf("file copy failed: %w", err)
	}

	return &StoredFile{
		ID:         stream.FileID.(primitive.ObjectID).Hex(),
		Filename:   filename,
		Size:       size,
		MimeType:   mimeType,
		UploadedAt: time.Now(),
	}, nil
}

// Fetch opens a download stream for a stored attachment.
func (as *AttachmentStorage) Fetch(ctx context.Context, fileID string) (io.Reader, *StoredFile, error) {
	objectID, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid file ID: %w", err)
	}

	stream, err := as.gridFS.OpenDownloadStream(objectID)
	if err != nil {
		return nil, nil, fmt.Errorf("download failed: %w", err)
	}

	fileInfo := stream.GetFile()
	var metadata bson.M
	if fileInfo.Metadata != nil {
		bson.Unmarshal(fileInfo.Metadata, &metadata)
	}

	stored := &StoredFile{
		ID:         fileID,
		Filename:   fileInfo.Name,
		Size:       fileInfo.Length,
		MimeType:   getStringFromMap(metadata, "mime_type"),
		UploadedAt: fileInfo.UploadDate,
	}

	return stream, stored, nil
}

func (as *AttachmentStorage) Delete(ctx context.Context, fileID string) error {
	objectID, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return fmt.Errorf("invalid file ID: %w", err)
	}
	return as.gridFS.Delete(objectID)
}

func getStringFromMap(m bson.M, key string) string {
	if m == nil {
		return ""
	}
	if val, ok := m[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
