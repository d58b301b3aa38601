package vecindex

import (
	"context"
	"fmt"

	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const payloadContentKey = "content"

// #region client-struct
// Client wraps the Qdrant gRPC collections and points services for one
// collection. Cosine distance is used so scores are valid similarities.
type Client struct {
	conn        *grpc.ClientConn
	collections qdrantclient.CollectionsClient
	points      qdrantclient.PointsClient
	collection  string
	dim         int
}

// #endregion client-struct

// #region constructor
// NewClient connects to a Qdrant server over gRPC.
func NewClient(addr, collection string, dim int) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{
		conn:        conn,
		collections: qdrantclient.NewCollectionsClient(conn),
		points:      qdrantclient.NewPointsClient(conn),
		collection:  collection,
		dim:         dim,
	}, nil
}

// NewClientWithServices creates a Client with injected service stubs.
// Used for testing without a real gRPC connection.
func NewClientWithServices(collections qdrantclient.CollectionsClient, points qdrantclient.PointsClient, collection string, dim int) *Client {
	return &Client{collections: collections, points: points, collection: collection, dim: dim}
}

// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion constructor

// #region ensure-collection
// EnsureCollection creates the collection if it does not exist.
func (c *Client) EnsureCollection(ctx context.Context) error {
	list, err := c.collections.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	for _, col := range list.GetCollections() {
		if col.GetName() == c.collection {
			return nil
		}
	}

	_, err = c.collections.Create(ctx, &qdrantclient.CreateCollection{
		CollectionName: c.collection,
		VectorsConfig: &qdrantclient.VectorsConfig{
			Config: &qdrantclient.VectorsConfig_Params{
				Params: &qdrantclient.VectorParams{
					Size:     uint64(c.dim),
					Distance: qdrantclient.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", c.collection, err)
	}
	return nil
}

// #endregion ensure-collection

// #region upsert
// Upsert writes points into the collection. Existing ids are overwritten,
// which also serves as the update path.
func (c *Client) Upsert(ctx context.Context, points []Point) error {
	structs := make([]*qdrantclient.PointStruct, len(points))
	for i, p := range points {
		structs[i] = &qdrantclient.PointStruct{
			Id: pointID(p.ID),
			Vectors: &qdrantclient.Vectors{
				VectorsOptions: &qdrantclient.Vectors_Vector{
					Vector: &qdrantclient.Vector{Data: p.Vector},
				},
			},
			Payload: encodePayload(p.Content, p.Metadata),
		}
	}

	_, err := c.points.Upsert(ctx, &qdrantclient.UpsertPoints{
		CollectionName: c.collection,
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

// #endregion upsert

// #region search
// Search returns the k nearest neighbors of vector, optionally restricted to
// points whose payload matches every key/value pair in filter exactly.
func (c *Client) Search(ctx context.Context, vector []float32, k int, filter map[string]string) ([]SearchHit, error) {
	req := &qdrantclient.SearchPoints{
		CollectionName: c.collection,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Enable{Enable: true},
		},
	}
	if len(filter) > 0 {
		req.Filter = matchFilter(filter)
	}

	resp, err := c.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]SearchHit, 0, len(resp.GetResult()))
	for _, sp := range resp.GetResult() {
		content, meta := decodePayload(sp.GetPayload())
		hits = append(hits, SearchHit{
			ID:       sp.GetId().GetUuid(),
			Content:  content,
			Metadata: meta,
			Score:    sp.GetScore(),
		})
	}
	return hits, nil
}

// #endregion search

// #region get
// Get reads one point by id. Returns nil when the id is absent.
func (c *Client) Get(ctx context.Context, id string) (*StoredPoint, error) {
	resp, err := c.points.Get(ctx, &qdrantclient.GetPoints{
		CollectionName: c.collection,
		Ids:            []*qdrantclient.PointId{pointID(id)},
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get point %s: %w", id, err)
	}
	if len(resp.GetResult()) == 0 {
		return nil, nil
	}

	rp := resp.GetResult()[0]
	content, meta := decodePayload(rp.GetPayload())
	return &StoredPoint{ID: rp.GetId().GetUuid(), Content: content, Metadata: meta}, nil
}

// #endregion get

// #region delete
// Delete removes points by id. Absent ids are ignored by the server.
func (c *Client) Delete(ctx context.Context, ids []string) error {
	pids := make([]*qdrantclient.PointId, len(ids))
	for i, id := range ids {
		pids[i] = pointID(id)
	}

	_, err := c.points.Delete(ctx, &qdrantclient.DeletePoints{
		CollectionName: c.collection,
		Points: &qdrantclient.PointsSelector{
			PointsSelectorOneOf: &qdrantclient.PointsSelector_Points{
				Points: &qdrantclient.PointsIdsList{Ids: pids},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("delete %d points: %w", len(ids), err)
	}
	return nil
}

// #endregion delete

// #region count
// Count returns the number of points in the collection.
func (c *Client) Count(ctx context.Context) (uint64, error) {
	resp, err := c.points.Count(ctx, &qdrantclient.CountPoints{
		CollectionName: c.collection,
	})
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return resp.GetResult().GetCount(), nil
}

// #endregion count

// #region sample
// Sample scrolls up to limit points with payloads. Used for the sample-based
// metadata key estimate; not a full scan.
func (c *Client) Sample(ctx context.Context, limit uint32) ([]StoredPoint, error) {
	resp, err := c.points.Scroll(ctx, &qdrantclient.ScrollPoints{
		CollectionName: c.collection,
		Limit:          &limit,
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("scroll: %w", err)
	}

	out := make([]StoredPoint, 0, len(resp.GetResult()))
	for _, rp := range resp.GetResult() {
		content, meta := decodePayload(rp.GetPayload())
		out = append(out, StoredPoint{ID: rp.GetId().GetUuid(), Content: content, Metadata: meta})
	}
	return out, nil
}

// #endregion sample

// #region payload-codec
func pointID(id string) *qdrantclient.PointId {
	return &qdrantclient.PointId{
		PointIdOptions: &qdrantclient.PointId_Uuid{Uuid: id},
	}
}

func encodePayload(content string, metadata map[string]string) map[string]*qdrantclient.Value {
	payload := make(map[string]*qdrantclient.Value, len(metadata)+1)
	payload[payloadContentKey] = stringValue(content)
	for k, v := range metadata {
		payload[k] = stringValue(v)
	}
	return payload
}

func decodePayload(payload map[string]*qdrantclient.Value) (string, map[string]string) {
	content := ""
	meta := make(map[string]string, len(payload))
	for k, v := range payload {
		if k == payloadContentKey {
			content = v.GetStringValue()
			continue
		}
		meta[k] = v.GetStringValue()
	}
	return content, meta
}

func stringValue(s string) *qdrantclient.Value {
	return &qdrantclient.Value{Kind: &qdrantclient.Value_StringValue{StringValue: s}}
}

func matchFilter(filter map[string]string) *qdrantclient.Filter {
	must := make([]*qdrantclient.Condition, 0, len(filter))
	for k, v := range filter {
		must = append(must, &qdrantclient.Condition{
			ConditionOneOf: &qdrantclient.Condition_Field{
				Field: &qdrantclient.FieldCondition{
					Key: k,
					Match: &qdrantclient.Match{
						MatchValue: &qdrantclient.Match_Keyword{Keyword: v},
					},
				},
			},
		})
	}
	return &qdrantclient.Filter{Must: must}
}

// #endregion payload-codec
