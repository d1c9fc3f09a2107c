package benchmark

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joho/godotenv"

	"github.com/seismetry/seismetry/internal/storage"
)

// generateEventsCSV builds a synthetic microseismic catalog of n events
// spread over the given number of months starting at 2019-01.
func generateEventsCSV(n, months int) string {
	rng := rand.New(rand.NewSource(42))
	var sb strings.Builder
	sb.WriteString("Date,Easting[m],Northing[m],Depth_SS[m],Moment Magnitude\n")
	base := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		day := base.AddDate(0, rng.Intn(months), rng.Intn(28))
		fmt.Fprintf(&sb, "%s,%d,%d,%d,%.2f\n",
			day.Format("2006-01-02"),
			1000+rng.Intn(500),
			3000+rng.Intn(500),
			700+rng.Intn(300),
			rng.Float64()*3,
		)
	}
	return sb.String()
}

// generateWellsCSV builds n facility wells alternating producers and
// injectors.
func generateWellsCSV(n int) string {
	var sb strings.Builder
	sb.WriteString("Name,Type,x,y,z\n")
	for i := 1; i <= n; i++ {
		kind := "producer"
		if i%2 == 0 {
			kind = "injector"
		}
		fmt.Fprintf(&sb, "PGKYP%02d,%s,%d,%d,%d\n", i, kind, i*10, i*20, -40-i)
	}
	return sb.String()
}

// generateVolumesCSV builds one monthly volume row per well per month.
func generateVolumesCSV(wells, months int) string {
	rng := rand.New(rand.NewSource(7))
	var sb strings.Builder
	sb.WriteString("HOLE_NAME,START_DATE,OIL,WATER,STEAM_INJECTION,WATER_INJECTION\n")
	base := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	for w := 1; w <= wells; w++ {
		for m := 0; m < months; m++ {
			month := base.AddDate(0, m, 0)
			if w%2 == 0 {
				fmt.Fprintf(&sb, "PGKYP-%02d,%s,0,0,%d,%d\n",
					w, month.Format("2006-01-02"), rng.Intn(200), rng.Intn(50))
			} else {
				fmt.Fprintf(&sb, "PGKYP-%02d,%s,%d,%d,0,0\n",
					w, month.Format("2006-01-02"), rng.Intn(300), rng.Intn(100))
			}
		}
	}
	return sb.String()
}

// getBenchmarkStorage returns an object storage backend and a cleanup
// function. It respects SEISMETRY_STORAGE_TYPE=s3 from .env or the
// environment; the default is a local temp-dir backend.
func getBenchmarkStorage(b *testing.B, benchName string) (storage.ObjectStorage, func()) {
	_ = godotenv.Load("../../.env")

	if os.Getenv("SEISMETRY_STORAGE_TYPE") == "s3" {
		if v := os.Getenv("SEISMETRY_AWS_ACCESS_KEY_ID"); v != "" {
			os.Setenv("AWS_ACCESS_KEY_ID", v)
		}
		if v := os.Getenv("SEISMETRY_AWS_SECRET_ACCESS_KEY"); v != "" {
			os.Setenv("AWS_SECRET_ACCESS_KEY", v)
		}

		bucket := os.Getenv("SEISMETRY_S3_BUCKET")
		if bucket == "" {
			b.Fatal("SEISMETRY_S3_BUCKET is required for the s3 benchmark")
		}

		cfg := storage.DefaultS3Config()
		cfg.Region = os.Getenv("SEISMETRY_S3_REGION")
		cfg.Endpoint = os.Getenv("SEISMETRY_S3_ENDPOINT")

		st, err := storage.NewS3Storage(context.Background(), bucket, cfg)
		if err != nil {
			b.Fatalf("failed to initialize S3 storage: %v", err)
		}

		prefix := fmt.Sprintf("bench/%s/%d", benchName, time.Now().UnixNano())
		b.Logf("running benchmark against s3 bucket %s prefix %s", bucket, prefix)
		return &prefixedStorage{inner: st, prefix: prefix}, func() {}
	}

	dir, err := os.MkdirTemp("", "seismetry-bench-"+benchName+"-*")
	if err != nil {
		b.Fatal(err)
	}
	st, err := storage.NewLocalStorage(filepath.Join(dir, "storage"))
	if err != nil {
		b.Fatal(err)
	}
	return st, func() { os.RemoveAll(dir) }
}

// prefixedStorage scopes all object keys of a benchmark run under one
// prefix so concurrent runs against a shared bucket do not collide.
type prefixedStorage struct {
	inner  storage.ObjectStorage
	prefix string
}

func (s *prefixedStorage) key(objectPath string) string {
	return s.prefix + "/" + objectPath
}

func (s *prefixedStorage) Upload(ctx context.Context, localPath, objectPath string) error {
	return s.inner.Upload(ctx, localPath, s.key(objectPath))
}

func (s *prefixedStorage) UploadMultipart(ctx context.Context, localPath, objectPath string) (string, error) {
	return s.inner.UploadMultipart(ctx, localPath, s.key(objectPath))
}

func (s *prefixedStorage) Download(ctx context.Context, objectPath, localPath string) error {
	return s.inner.Download(ctx, s.key(objectPath), localPath)
}

func (s *prefixedStorage) PutBytes(ctx context.Context, objectPath string, data []byte) error {
	return s.inner.PutBytes(ctx, s.key(objectPath), data)
}

func (s *prefixedStorage) GetBytes(ctx context.Context, objectPath string) ([]byte, error) {
	return s.inner.GetBytes(ctx, s.key(objectPath))
}

func (s *prefixedStorage) Delete(ctx context.Context, objectPath string) error {
	return s.inner.Delete(ctx, s.key(objectPath))
}

func (s *prefixedStorage) Exists(ctx context.Context, objectPath string) (bool, error) {
	return s.inner.Exists(ctx, s.key(objectPath))
}

func (s *prefixedStorage) ConditionalPut(ctx context.Context, localPath, objectPath, etag string) error {
	return s.inner.ConditionalPut(ctx, localPath, s.key(objectPath), etag)
}

func (s *prefixedStorage) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	objects, err := s.inner.ListObjects(ctx, s.key(prefix))
	if err != nil {
		return nil, err
	}
	stripped := make([]string, len(objects))
	for i, obj := range objects {
		stripped[i] = strings.TrimPrefix(obj, s.prefix+"/")
	}
	return stripped, nil
}
