package vector

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// defaultSearchLimit caps a single range query. Range semantics come from
// the score threshold; the limit is a guard against degenerate collections
// where everything matches.
const defaultSearchLimit = 4096

// QdrantIndex implements Index using Qdrant.
type QdrantIndex struct {
	conn       *grpc.ClientConn
	points     pb.PointsClient
	collection string
	limit      uint64
}

// NewQdrant creates a Qdrant-backed index.
func NewQdrant(ctx context.Context, host string, port int, collection string, searchLimit uint64) (*QdrantIndex, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	if searchLimit == 0 {
		searchLimit = defaultSearchLimit
	}
	return &QdrantIndex{
		conn:       conn,
		points:     pb.NewPointsClient(conn),
		collection: collection,
		limit:      searchLimit,
	}, nil
}

func (q *QdrantIndex) Upsert(ctx context.Context, pts []Point) error {
	points := make([]*pb.PointStruct, len(pts))
	for i, p := range pts {
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: p.ID}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: p.Vector}}},
		}
	}

	_, err := q.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: q.collection,
		Points:         points,
	})
	return err
}

func (q *QdrantIndex) RangeSearch(ctx context.Context, vec []float32, radius float32) ([]Neighbor, error) {
	resp, err := q.points.Search(ctx, &pb.SearchPoints{
		CollectionName: q.collection,
		Vector:         vec,
		Limit:          q.limit,
		ScoreThreshold: &radius,
	})
	if err != nil {
		return nil, err
	}

	neighbors := make([]Neighbor, len(resp.Result))
	for i, pt := range resp.Result {
		neighbors[i] = Neighbor{
			ID:    pt.Id.GetNum(),
			Score: pt.Score,
		}
	}
	return neighbors, nil
}

func (q *QdrantIndex) Close() error {
	return q.conn.Close()
}

var _ Index = (*QdrantIndex)(nil)
