package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sys/unix"

	"argus/internal/config"
)

const storageCheckName = "Blob storage"

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckStorage verifies that the configured blob-store backend is usable.
// Filesystem backends need a writable root; MinIO backends need a reachable
// endpoint. A missing bucket passes because the store creates it on startup.
func CheckStorage(ctx context.Context, cfg *config.Config) Result {
	switch cfg.Storage.Backend {
	case config.StorageBackendFilesystem:
		res := CheckDirectoryAccess(storageCheckName, cfg.Storage.FilesystemRoot)
		return res
	case config.StorageBackendMinio:
		return checkMinio(ctx, cfg.Storage)
	default:
		return Result{Name: storageCheckName, Detail: fmt.Sprintf("unknown backend %q", cfg.Storage.Backend)}
	}
}

func checkMinio(ctx context.Context, st config.Storage) Result {
	endpoint := strings.TrimSpace(st.MinioEndpoint)
	if endpoint == "" {
		return Result{Name: storageCheckName, Detail: "missing minio endpoint"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(st.MinioAccessKey, st.MinioSecretKey, ""),
		Secure: st.MinioUseSSL,
		Region: st.MinioRegion,
	})
	if err != nil {
		return Result{Name: storageCheckName, Detail: fmt.Sprintf("client setup failed (%v)", err)}
	}

	exists, err := client.BucketExists(checkCtx, st.MinioBucket)
	if err != nil {
		return Result{Name: storageCheckName, Detail: fmt.Sprintf("endpoint unreachable (%v)", err)}
	}
	if !exists {
		return Result{Name: storageCheckName, Passed: true, Detail: fmt.Sprintf("reachable (bucket %q created on first write)", st.MinioBucket)}
	}
	return Result{Name: storageCheckName, Passed: true, Detail: fmt.Sprintf("reachable (bucket %q ready)", st.MinioBucket)}
}

// CheckNotificationsFromConfig evaluates ntfy configuration for status UIs.
// No network call is made; a configured topic is reported as-is.
func CheckNotificationsFromConfig(cfg *config.Config) Result {
	const name = "Notifications"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	return Result{Name: name, Passed: true, Detail: "Configured (" + topic + ")"}
}
