package store

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dianabombi/student-advisor-sub002/internal/config"
	"github.com/dianabombi/student-advisor-sub002/models"
)

// Needs a running MongoDB; set MONGO_TEST_URI to enable.
func testStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Skipf("mongo connect failed: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		t.Skipf("mongo ping failed: %v", err)
	}

	db := client.Database("student_advisor_test")
	if err := config.EnsureIndexes(db); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		db.Drop(ctx)
		client.Disconnect(ctx)
	})
	return NewStore(db)
}

func TestEnqueueCoalesces(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	instID := primitive.NewObjectID()

	first, created, err := st.Jobs.Enqueue(ctx, instID, "https://example.com")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if !created {
		t.Fatal("first enqueue should create a job")
	}

	second, created, err := st.Jobs.Enqueue(ctx, instID, "https://example.com")
	if err != nil {
		t.Fatalf("second Enqueue: %v", err)
	}
	if created {
		t.Error("second enqueue should coalesce, not create")
	}
	if second.ID != first.ID {
		t.Errorf("coalesced job %s != original %s", second.ID.Hex(), first.ID.Hex())
	}
}

func TestEnqueueConcurrentCreatesOneJob(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	instID := primitive.NewObjectID()

	var wg sync.WaitGroup
	jobs := make(chan primitive.ObjectID, 10)
	created := make(chan struct{}, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, isNew, err := st.Jobs.Enqueue(ctx, instID, "https://example.com")
			if err != nil {
				t.Errorf("Enqueue: %v", err)
				return
			}
			jobs <- job.ID
			if isNew {
				created <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(jobs)
	close(created)

	creations := 0
	for range created {
		creations++
	}
	if creations != 1 {
		t.Fatalf("%d enqueues created a job, want exactly 1", creations)
	}

	ids := map[primitive.ObjectID]bool{}
	for id := range jobs {
		ids[id] = true
	}
	if len(ids) != 1 {
		t.Fatalf("enqueues resolved to %d distinct jobs, want 1", len(ids))
	}

	n, err := st.Jobs.col.CountDocuments(ctx, bson.M{"institution_id": instID})
	if err != nil {
		t.Fatalf("CountDocuments: %v", err)
	}
	if n != 1 {
		t.Fatalf("%d job rows written, want 1", n)
	}
}

func TestClaimIsExclusive(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	job, _, err := st.Jobs.Enqueue(ctx, primitive.NewObjectID(), "https://example.com")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	var wg sync.WaitGroup
	wins := make(chan struct{}, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := st.Jobs.Claim(ctx, job.ID); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	if count != 1 {
		t.Fatalf("%d workers claimed the job, want exactly 1", count)
	}
}

func TestTerminalTransitions(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	instID := primitive.NewObjectID()

	job, _, err := st.Jobs.Enqueue(ctx, instID, "https://example.com")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := st.Jobs.Claim(ctx, job.ID); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := st.Jobs.Complete(ctx, job.ID, 7); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	latest, err := st.Jobs.LatestForInstitution(ctx, instID)
	if err != nil {
		t.Fatalf("LatestForInstitution: %v", err)
	}
	if latest.Status != models.JobStatusCompleted {
		t.Errorf("status = %q, want completed", latest.Status)
	}
	if latest.PagesScraped != 7 {
		t.Errorf("pages = %d, want 7", latest.PagesScraped)
	}

	// A completed job is terminal; a new enqueue starts a fresh row.
	fresh, created, err := st.Jobs.Enqueue(ctx, instID, "https://example.com")
	if err != nil {
		t.Fatalf("re-Enqueue: %v", err)
	}
	if !created || fresh.ID == job.ID {
		t.Error("terminal job should not block a new enqueue")
	}
}

func TestRecordAttemptCounts(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	job, _, err := st.Jobs.Enqueue(ctx, primitive.NewObjectID(), "https://example.com")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := st.Jobs.Claim(ctx, job.ID); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	for want := 1; want <= 3; want++ {
		got, err := st.Jobs.RecordAttempt(ctx, job.ID, "timeout")
		if err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
		if got != want {
			t.Errorf("attempt count = %d, want %d", got, want)
		}
	}
}
