// Package qdrant implements store.VectorIndex against an external Qdrant
// collection, for deployments that want semantic search without storing
// vectors in the SQL database.
package qdrant

import (
	"context"
	"fmt"
	"strings"

	"github.com/chirino/memstore/internal/config"
	registryvector "github.com/chirino/memstore/internal/registry/vector"
	"github.com/chirino/memstore/internal/store"
	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

func init() {
	registryvector.Register(registryvector.Plugin{
		Name:   "qdrant",
		Loader: load,
	})
}

func load(ctx context.Context, dims int) (store.VectorIndex, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil {
		return nil, fmt.Errorf("qdrant: missing config in context")
	}
	conn, err := grpc.NewClient(cfg.QdrantAddress(), dialOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("qdrant: connect: %w", err)
	}
	collectionName := effectiveCollectionName(cfg)

	collections := pb.NewCollectionsClient(conn)
	if _, err := collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: collectionName}); err != nil {
		_, err = collections.Create(ctx, &pb.CreateCollection{
			CollectionName: collectionName,
			VectorsConfig: &pb.VectorsConfig{
				Config: &pb.VectorsConfig_Params{
					Params: &pb.VectorParams{
						Size:     uint64(dims),
						Distance: pb.Distance_Cosine,
					},
				},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("qdrant: create collection: %w", err)
		}
	}

	return &VectorIndex{
		points:         pb.NewPointsClient(conn),
		conn:           conn,
		collectionName: collectionName,
	}, nil
}

// VectorIndex stores each (namespace, key, field) vector as one Qdrant
// point, identified by a deterministic UUID so re-indexing the same item
// overwrites rather than duplicates. Namespace prefix matching happens
// client-side after an over-fetched unfiltered search, since Qdrant's
// payload filters match whole field values, not string prefixes.
type VectorIndex struct {
	points         pb.PointsClient
	conn           *grpc.ClientConn
	collectionName string
}

func pointID(namespace store.Namespace, key, field string) string {
	name := namespace.Encode() + "\x00" + key + "\x00" + field
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

func (v *VectorIndex) Upsert(ctx context.Context, namespace store.Namespace, key string, vectors map[string][]float32) error {
	points := make([]*pb.PointStruct, 0, len(vectors))
	for field, vec := range vectors {
		points = append(points, &pb.PointStruct{
			Id: &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: pointID(namespace, key, field)}},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: vec}},
			},
			Payload: map[string]*pb.Value{
				"namespace": {Kind: &pb.Value_StringValue{StringValue: namespace.Encode()}},
				"key":       {Kind: &pb.Value_StringValue{StringValue: key}},
				"field":     {Kind: &pb.Value_StringValue{StringValue: field}},
			},
		})
	}
	if len(points) == 0 {
		return nil
	}
	if err := v.Delete(ctx, namespace, key); err != nil {
		return err
	}
	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{CollectionName: v.collectionName, Points: points})
	return err
}

func (v *VectorIndex) Delete(ctx context.Context, namespace store.Namespace, key string) error {
	_, err := v.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: v.collectionName,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Must: []*pb.Condition{
						matchKeyword("namespace", namespace.Encode()),
						matchKeyword("key", key),
					},
				},
			},
		},
	})
	return err
}

func (v *VectorIndex) Search(ctx context.Context, prefix store.Namespace, query []float32, limit int) ([]store.VectorMatch, error) {
	resp, err := v.points.Search(ctx, &pb.SearchPoints{
		CollectionName: v.collectionName,
		Vector:         query,
		Limit:          uint64(limit * 4),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, err
	}

	encodedPrefix := prefix.Encode()
	best := make(map[string]store.VectorMatch)
	var order []string
	for _, pt := range resp.GetResult() {
		payload := pt.GetPayload()
		ns := payload["namespace"].GetStringValue()
		if !store.HasPrefix(ns, encodedPrefix) {
			continue
		}
		key := payload["key"].GetStringValue()
		if _, seen := best[key]; !seen {
			order = append(order, key)
		}
		score := float64(pt.GetScore())
		if existing, ok := best[key]; !ok || score > existing.Score {
			best[key] = store.VectorMatch{Namespace: store.DecodeNamespace(ns), Key: key, Score: score}
		}
		if len(order) >= limit {
			break
		}
	}
	out := make([]store.VectorMatch, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out, nil
}

func matchKeyword(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key:   key,
				Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: value}},
			},
		},
	}
}

func dialOptions(cfg *config.Config) []grpc.DialOption {
	opts := make([]grpc.DialOption, 0, 2)
	if cfg.QdrantUseTLS {
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(nil)))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	if strings.TrimSpace(cfg.QdrantAPIKey) != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(apiKeyCredentials{
			apiKey:     cfg.QdrantAPIKey,
			requireTLS: cfg.QdrantUseTLS,
		}))
	}
	return opts
}

type apiKeyCredentials struct {
	apiKey     string
	requireTLS bool
}

func (a apiKeyCredentials) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"api-key": a.apiKey}, nil
}

func (a apiKeyCredentials) RequireTransportSecurity() bool {
	return a.requireTLS
}

func effectiveCollectionName(cfg *config.Config) string {
	if name := strings.TrimSpace(cfg.QdrantCollectionName); name != "" {
		return name
	}
	prefix := strings.TrimSpace(cfg.QdrantCollectionPrefix)
	if prefix == "" {
		prefix = "memstore"
	}
	return prefix + "_items"
}

var _ store.VectorIndex = (*VectorIndex)(nil)
