package qdrant

import pb "github.com/qdrant/go-client/qdrant"

// NewStoreForTest creates a Store with the provided gRPC clients (test-only).
func NewStoreForTest(points pb.PointsClient, collections pb.CollectionsClient) *Store {
	return &Store{points: points, collections: collections}
}
