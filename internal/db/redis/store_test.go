package redis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/openpermit/permitsearch/internal/db"
	"github.com/openpermit/permitsearch/internal/domain/search/filter"
)

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestKeyHelpers(t *testing.T) {
	s := NewStoreForTest(nil)

	if got := s.docKey("permits", "p1"); got != "test:permits:p1" {
		t.Errorf("docKey = %q", got)
	}
	if got := s.indexName("permits"); got != "test:permits:idx" {
		t.Errorf("indexName = %q", got)
	}
	if got := s.extractDocID("permits", "test:permits:p1"); got != "p1" {
		t.Errorf("extractDocID = %q", got)
	}
}

func TestContainsIgnoreCase(t *testing.T) {
	tests := []struct {
		s, sub string
		want   bool
	}{
		{"Index Already Exists", "index already exists", true},
		{"UNKNOWN INDEX NAME", "unknown index name", true},
		{"hello world", "world", true},
		{"short", "longer than input", false},
		{"exact", "exact", true},
		{"", "", true},
		{"notempty", "", true},
	}
	for _, tc := range tests {
		got := containsIgnoreCase(tc.s, tc.sub)
		if got != tc.want {
			t.Errorf("containsIgnoreCase(%q, %q) = %v, want %v", tc.s, tc.sub, got, tc.want)
		}
	}
}

// --- record.go tests ---

func TestUpsertRecord_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(),
			mock.Match("DEL", "test:permits:p1"),
			mock.MatchFn(func(cmd []string) bool {
				if cmd[0] != "HSET" || cmd[1] != "test:permits:p1" {
					return false
				}
				for _, a := range cmd {
					if a == "__content" {
						return true
					}
				}
				return false
			}),
		).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(0)),
			mock.Result(mock.RedisInt64(4)),
		})

	s := NewStoreForTest(c)
	err := s.UpsertRecord(context.Background(), "permits", db.Record{
		ID:       "p1",
		Content:  "deck repair",
		Tags:     map[string]string{"status": "issued"},
		Numerics: map[string]float64{"valuation": 250000},
		Vector:   []float32{0.1, 0.2},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpsertRecord_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(0)),
			mock.ErrorResult(context.DeadlineExceeded),
		})

	s := NewStoreForTest(c)
	err := s.UpsertRecord(context.Background(), "permits", db.Record{ID: "p1", Content: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !isDBError(err) {
		t.Errorf("expected db.Error, got %T", err)
	}
}

func TestUpsertRecords_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	// каждая запись превращается в пару DEL+HSET
	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(0)),
			mock.Result(mock.RedisInt64(2)),
			mock.Result(mock.RedisInt64(0)),
			mock.Result(mock.RedisInt64(2)),
		})

	s := NewStoreForTest(c)
	err := s.UpsertRecords(context.Background(), "permits", []db.Record{
		{ID: "p1", Content: "a"},
		{ID: "p2", Content: "b"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpsertRecords_Empty(t *testing.T) {
	s := NewStoreForTest(nil)
	if err := s.UpsertRecords(context.Background(), "permits", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpsertRecords_PartialError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(0)),
			mock.Result(mock.RedisInt64(2)),
			mock.Result(mock.RedisInt64(0)),
			mock.ErrorResult(context.DeadlineExceeded),
		})

	s := NewStoreForTest(c)
	err := s.UpsertRecords(context.Background(), "permits", []db.Record{
		{ID: "p1", Content: "a"},
		{ID: "p2", Content: "b"},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "p2") {
		t.Errorf("expected failing record id in error, got %v", err)
	}
}

func TestGetRecord_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "test:permits:p1")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
			"__content": mock.RedisString("deck repair"),
			"vector":    mock.RedisString(vectorToBytes([]float32{0.5, 0.25})),
			"status":    mock.RedisString("issued"),
			"valuation": mock.RedisString("250000"),
		})))

	s := NewStoreForTest(c)
	rec, err := s.GetRecord(context.Background(), "permits", "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID != "p1" {
		t.Errorf("expected id p1, got %s", rec.ID)
	}
	if rec.Content != "deck repair" {
		t.Errorf("unexpected content: %s", rec.Content)
	}
	if len(rec.Vector) != 2 || rec.Vector[0] != 0.5 {
		t.Errorf("unexpected vector: %v", rec.Vector)
	}
	// числовые поля приходят сырыми строками, типизацию делает репозиторий
	if rec.Tags["status"] != "issued" || rec.Tags["valuation"] != "250000" {
		t.Errorf("unexpected tags: %v", rec.Tags)
	}
	if _, ok := rec.Tags["__content"]; ok {
		t.Error("content should not leak into tags")
	}
}

func TestGetRecord_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "test:permits:missing")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{})))

	s := NewStoreForTest(c)
	_, err := s.GetRecord(context.Background(), "permits", "missing")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestGetRecord_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "test:permits:p1")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	_, err := s.GetRecord(context.Background(), "permits", "p1")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, db.ErrKeyNotFound) {
		t.Error("network errors should not map to ErrKeyNotFound")
	}
}

func TestDeleteRecord_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("DEL", "test:permits:p1")).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c)
	if err := s.DeleteRecord(context.Background(), "permits", "p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRecordExists_True(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("EXISTS", "test:permits:p1")).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c)
	exists, err := s.RecordExists(context.Background(), "permits", "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Error("expected true")
	}
}

func TestRecordExists_False(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("EXISTS", "test:permits:p1")).
		Return(mock.Result(mock.RedisInt64(0)))

	s := NewStoreForTest(c)
	exists, err := s.RecordExists(context.Background(), "permits", "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("expected false")
	}
}

// --- kv.go tests ---

func TestGet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "mykey")).
		Return(mock.Result(mock.RedisBlobString("value")))

	s := NewStoreForTest(c)
	data, err := s.Get(context.Background(), "mykey")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "value" {
		t.Errorf("unexpected data: %s", data)
	}
}

func TestGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "mykey")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	_, err := s.Get(context.Background(), "mykey")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestSet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "mykey", "myvalue")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.Set(context.Background(), "mykey", []byte("myvalue")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetWithTTL_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SET" && cmd[1] == "mykey" && cmd[2] == "myvalue"
		})).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.SetWithTTL(context.Background(), "mykey", []byte("myvalue"), 60*1e9); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIncrBy_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("INCRBY", "counter", "5")).
		Return(mock.Result(mock.RedisInt64(5)))

	s := NewStoreForTest(c)
	if err := s.IncrBy(context.Background(), "counter", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExpire_WithoutNX(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "EXPIRE" && cmd[1] == "mykey"
		})).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c)
	if err := s.Expire(context.Background(), "mykey", 300*1e9, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExpire_WithNX(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			if cmd[0] != "EXPIRE" || cmd[1] != "mykey" {
				return false
			}
			// Should have NX flag
			for _, arg := range cmd {
				if arg == "NX" {
					return true
				}
			}
			return false
		})).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c)
	if err := s.Expire(context.Background(), "mykey", 300*1e9, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- index.go tests ---

func indexDefForTest() *db.IndexDefinition {
	return &db.IndexDefinition{
		Collection:      "permits",
		VectorDim:       4,
		Distance:        db.DistanceCosine,
		HNSWM:           32,
		HNSWEFConstruct: 400,
		Fields: []db.IndexField{
			{Name: "status", Type: db.IndexFieldTag},
			{Name: "valuation", Type: db.IndexFieldNumeric},
		},
	}
}

func TestEnsureIndex_AlreadyPresent(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	// FT.INFO succeeds, FT.CREATE must not be issued
	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "test:permits:idx")).
		Return(mock.Result(mock.RedisArray(mock.RedisString("index_name"), mock.RedisString("test:permits:idx"))))

	s := NewStoreForTest(c)
	if err := s.EnsureIndex(context.Background(), indexDefForTest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureIndex_Creates(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "test:permits:idx")).
		Return(mock.Result(mock.RedisError("Unknown index name")))

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE" && cmd[1] == "test:permits:idx"
		})).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.EnsureIndex(context.Background(), indexDefForTest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureIndex_CreateRace(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "test:permits:idx")).
		Return(mock.Result(mock.RedisError("Unknown index name")))

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.Result(mock.RedisError("Index already exists")))

	s := NewStoreForTest(c)
	if err := s.EnsureIndex(context.Background(), indexDefForTest()); err != nil {
		t.Fatalf("expected race to be tolerated, got %v", err)
	}
}

func TestEnsureIndex_InvalidDefinition(t *testing.T) {
	s := NewStoreForTest(nil) // client must not be called
	err := s.EnsureIndex(context.Background(), &db.IndexDefinition{VectorDim: 4, Distance: db.DistanceCosine})
	if err == nil {
		t.Fatal("expected error for missing collection")
	}
}

func TestSupportsTextSearch(t *testing.T) {
	s := &Store{}
	if !s.SupportsTextSearch(context.Background()) {
		t.Error("Redis store should support text search")
	}
}

func TestBuildCreateArgs_Layout(t *testing.T) {
	s := NewStoreForTest(nil)
	def := indexDefForTest()

	got := strings.Join(s.buildCreateArgs(s.indexName(def.Collection), def), " ")
	want := "test:permits:idx ON HASH PREFIX 1 test:permits: " +
		"SCHEMA __content TEXT " +
		"vector VECTOR HNSW 10 TYPE FLOAT32 DIM 4 DISTANCE_METRIC COSINE M 32 EF_CONSTRUCTION 400 " +
		"status TAG valuation NUMERIC"
	if got != want {
		t.Errorf("unexpected args:\n got  %s\n want %s", got, want)
	}
}

func TestBuildVectorFieldArgs_NoHNSWParams(t *testing.T) {
	def := &db.IndexDefinition{Collection: "permits", VectorDim: 8, Distance: db.DistanceL2}

	got := strings.Join(buildVectorFieldArgs(def), " ")
	want := "vector VECTOR HNSW 6 TYPE FLOAT32 DIM 8 DISTANCE_METRIC L2"
	if got != want {
		t.Errorf("unexpected args: %s", got)
	}
}

// --- search.go tests ---

func TestSearchKNN_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[1] == "test:permits:idx"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1), // total
			mock.RedisString("test:permits:p1"),
			mock.RedisArray(
				mock.RedisString("__vector_score"),
				mock.RedisString("0.1"),
				mock.RedisString("__content"),
				mock.RedisString("roof replacement"),
				mock.RedisString("status"),
				mock.RedisString("issued"),
				mock.RedisString("vector"),
				mock.RedisString(vectorToBytes([]float32{0.1, 0.2})),
			),
		)))

	s := NewStoreForTest(c)
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		Collection: "permits",
		Vector:     []float32{0.1, 0.2},
		K:          10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("expected total 1, got %d", result.Total)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(result.Entries))
	}

	entry := result.Entries[0]
	if entry.ID != "p1" {
		t.Errorf("expected id p1, got %s", entry.ID)
	}
	// cosine distance 0.1 maps to similarity 0.9
	if entry.Score < 0.89 || entry.Score > 0.91 {
		t.Errorf("expected score ~0.9, got %f", entry.Score)
	}
	if entry.Content != "roof replacement" {
		t.Errorf("unexpected content: %s", entry.Content)
	}
	if entry.Tags["status"] != "issued" {
		t.Errorf("unexpected tags: %v", entry.Tags)
	}
	if _, ok := entry.Tags["vector"]; ok {
		t.Error("vector blob should not leak into tags")
	}
	if _, ok := entry.Tags["__vector_score"]; ok {
		t.Error("score field should not leak into tags")
	}
}

func TestSearchKNN_DistanceOverOne_ClampsToZero(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisString("test:permits:p1"),
			mock.RedisArray(
				mock.RedisString("__vector_score"),
				mock.RedisString("1.7"),
			),
		)))

	s := NewStoreForTest(c)
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		Collection: "permits",
		Vector:     []float32{0.1},
		K:          1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Entries[0].Score != 0 {
		t.Errorf("expected clamped score 0, got %f", result.Entries[0].Score)
	}
}

func TestSearchKNN_FilterQuery(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" &&
				cmd[2] == "(@status:{issued})=>[KNN 5 @vector $BLOB]"
		})).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	cond, _ := filter.NewMatch("status", "issued")
	f, _ := filter.New([]filter.Condition{cond})

	s := NewStoreForTest(c)
	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		Collection: "permits",
		Filters:    f,
		Vector:     []float32{0.1},
		K:          5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSearchKNN_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	s := NewStoreForTest(c)
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		Collection: "permits",
		Vector:     []float32{0.1},
		K:          10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 0 {
		t.Errorf("expected 0 entries, got %d", len(result.Entries))
	}
}

func TestSearchKNN_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		Collection: "permits",
		Vector:     []float32{0.1},
		K:          10,
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	s := &Store{}
	ctx := context.Background()

	_, err := s.SearchKNN(ctx, &db.KNNQuery{Vector: []float32{0.1}, K: 10})
	if err == nil {
		t.Error("expected error for empty collection")
	}

	_, err = s.SearchKNN(ctx, &db.KNNQuery{Collection: "permits", K: 10})
	if err == nil {
		t.Error("expected error for empty vector")
	}

	_, err = s.SearchKNN(ctx, &db.KNNQuery{Collection: "permits", Vector: []float32{0.1}, K: 0})
	if err == nil {
		t.Error("expected error for k=0")
	}
}

func TestSearchBM25_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[1] == "test:permits:idx"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisString("test:permits:p1"),
			mock.RedisString("0.85"),
			mock.RedisArray(
				mock.RedisString("__content"),
				mock.RedisString("kitchen remodel"),
			),
		)))

	s := NewStoreForTest(c)
	result, err := s.SearchBM25(context.Background(), &db.TextQuery{
		Collection: "permits",
		Query:      "kitchen",
		TopK:       10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("expected total 1, got %d", result.Total)
	}
	if result.Entries[0].ID != "p1" {
		t.Errorf("expected id p1, got %s", result.Entries[0].ID)
	}
	if result.Entries[0].Score < 0.84 || result.Entries[0].Score > 0.86 {
		t.Errorf("expected score ~0.85, got %f", result.Entries[0].Score)
	}
}

func TestSearchBM25_Validation(t *testing.T) {
	s := &Store{}
	ctx := context.Background()

	_, err := s.SearchBM25(ctx, &db.TextQuery{Query: "test", TopK: 10})
	if err == nil {
		t.Error("expected error for empty collection")
	}

	_, err = s.SearchBM25(ctx, &db.TextQuery{Collection: "permits", TopK: 10})
	if err == nil {
		t.Error("expected error for empty query")
	}

	_, err = s.SearchBM25(ctx, &db.TextQuery{Collection: "permits", Query: "test", TopK: 0})
	if err == nil {
		t.Error("expected error for topK=0")
	}
}

func TestListRecords_FirstPage(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			if cmd[0] != "FT.SEARCH" || cmd[1] != "test:permits:idx" || cmd[2] != "*" {
				return false
			}
			for i, a := range cmd {
				if a == "LIMIT" {
					return cmd[i+1] == "0" && cmd[i+2] == "2"
				}
			}
			return false
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(3),
			mock.RedisString("test:permits:p1"),
			mock.RedisArray(mock.RedisString("__content"), mock.RedisString("a")),
			mock.RedisString("test:permits:p2"),
			mock.RedisArray(mock.RedisString("__content"), mock.RedisString("b")),
		)))

	s := NewStoreForTest(c)
	page, err := s.ListRecords(context.Background(), &db.ListQuery{Collection: "permits", Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(page.Records))
	}
	if page.Records[0].ID != "p1" || page.Records[1].ID != "p2" {
		t.Errorf("unexpected ids: %s, %s", page.Records[0].ID, page.Records[1].ID)
	}
	if page.NextCursor != "2" {
		t.Errorf("expected cursor 2, got %q", page.NextCursor)
	}
}

func TestListRecords_LastPage(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			if cmd[0] != "FT.SEARCH" {
				return false
			}
			for i, a := range cmd {
				if a == "LIMIT" {
					return cmd[i+1] == "2" && cmd[i+2] == "2"
				}
			}
			return false
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(3),
			mock.RedisString("test:permits:p3"),
			mock.RedisArray(mock.RedisString("__content"), mock.RedisString("c")),
		)))

	s := NewStoreForTest(c)
	page, err := s.ListRecords(context.Background(), &db.ListQuery{Collection: "permits", Cursor: "2", Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(page.Records))
	}
	// выдача исчерпана, курсор пустой
	if page.NextCursor != "" {
		t.Errorf("expected empty cursor, got %q", page.NextCursor)
	}
}

func TestListRecords_MalformedCursor(t *testing.T) {
	s := NewStoreForTest(nil) // client must not be called

	_, err := s.ListRecords(context.Background(), &db.ListQuery{Collection: "permits", Cursor: "abc", Limit: 2})
	if err == nil {
		t.Fatal("expected error")
	}

	_, err = s.ListRecords(context.Background(), &db.ListQuery{Collection: "permits", Cursor: "-1", Limit: 2})
	if err == nil {
		t.Fatal("expected error for negative cursor")
	}
}

func TestCountRecords_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.SEARCH", "test:permits:idx", "*", "LIMIT", "0", "0")).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(42))))

	s := NewStoreForTest(c)
	count, err := s.CountRecords(context.Background(), "permits")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 42 {
		t.Errorf("expected 42, got %d", count)
	}
}

func TestCountRecords_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray()))

	s := NewStoreForTest(c)
	count, err := s.CountRecords(context.Background(), "permits")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0, got %d", count)
	}
}

// --- Filter building tests ---

func TestBuildFilter_Empty(t *testing.T) {
	result := buildFilter(filter.Filter{})
	if result != "" {
		t.Errorf("expected empty string, got %q", result)
	}
}

func TestBuildFilter_Tag(t *testing.T) {
	cond, _ := filter.NewMatch("status", "issued")
	f, _ := filter.New([]filter.Condition{cond})

	result := buildFilter(f)
	if result != `@status:{issued}` {
		t.Errorf("unexpected filter: %q", result)
	}
}

func TestBuildFilter_Numeric(t *testing.T) {
	gte := 10.0
	lte := 100.0
	rng, _ := filter.NewRangeFilter(nil, &gte, nil, &lte)
	cond, _ := filter.NewRange("valuation", rng)
	f, _ := filter.New([]filter.Condition{cond})

	result := buildFilter(f)
	if result != `@valuation:[10 100]` {
		t.Errorf("unexpected filter: %q", result)
	}
}

func TestBuildFilter_NumericEquals(t *testing.T) {
	cond, _ := filter.NewNumericEquals("units", 3)
	f, _ := filter.New([]filter.Condition{cond})

	result := buildFilter(f)
	if result != `@units:[3 3]` {
		t.Errorf("unexpected filter: %q", result)
	}
}

func TestBuildFilter_Combined(t *testing.T) {
	tagCond, _ := filter.NewMatch("status", "issued")
	numCond, _ := filter.NewNumericEquals("units", 3)
	f, _ := filter.New([]filter.Condition{tagCond, numCond})

	result := buildFilter(f)
	if result != `@status:{issued} @units:[3 3]` {
		t.Errorf("unexpected filter: %q", result)
	}
}

func TestBuildTagFilter_Escaping(t *testing.T) {
	result := buildTagFilter("address", "100 Main St.")
	if result != `@address:{100\ Main\ St\.}` {
		t.Errorf("unexpected filter: %q", result)
	}
}

func TestBuildNumericFilter_GTonly(t *testing.T) {
	gt := 5.0
	rng, _ := filter.NewRangeFilter(&gt, nil, nil, nil)
	result := buildNumericFilter("valuation", rng)
	if result != `@valuation:[(5 +inf]` {
		t.Errorf("unexpected filter: %q", result)
	}
}

func TestBuildNumericFilter_LTonly(t *testing.T) {
	lt := 100.0
	rng, _ := filter.NewRangeFilter(nil, nil, &lt, nil)
	result := buildNumericFilter("valuation", rng)
	if result != `@valuation:[-inf (100]` {
		t.Errorf("unexpected filter: %q", result)
	}
}

func TestEscapeQuery(t *testing.T) {
	input := `hello "world" @user {tag}`
	escaped := escapeQuery(input)
	expected := `hello \"world\" \@user \{tag\}`
	if escaped != expected {
		t.Errorf("expected %q, got %q", expected, escaped)
	}
}

func TestVectorBytesRoundTrip(t *testing.T) {
	v := []float32{1.0, -2.5, 0.125}
	b := vectorToBytes(v)
	if len(b) != 12 {
		t.Fatalf("expected 12 bytes, got %d", len(b))
	}

	back := bytesToVector(b)
	if len(back) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(back))
	}
	for i := range v {
		if back[i] != v[i] {
			t.Errorf("element %d: expected %f, got %f", i, v[i], back[i])
		}
	}
}

// --- helpers ---

// isDBError is a test helper for checking wrapped db.Error.
func isDBError(err error) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr)
}
