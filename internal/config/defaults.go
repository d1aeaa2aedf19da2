package config

// Storage backend names accepted in [storage].backend.
const (
	StorageBackendFilesystem = "filesystem"
	StorageBackendMinio      = "minio"
)

// CFA detection methods accepted in [analysis].cfa_method.
const (
	CFAMethodLaplacian = "LAPLACIAN"
	CFAMethodGradient  = "GRADIENT"
)

const (
	defaultStagingDir        = "~/.local/share/argus/staging"
	defaultLogDir            = "~/.local/share/argus/logs"
	defaultAPIBind           = "127.0.0.1:7817"
	defaultStorageRoot       = "~/.local/share/argus/store"
	defaultMinioBucket       = "argus-media"
	defaultDetectorWorkers   = 4
	defaultELAQuality        = 95
	defaultELAScale          = 20
	defaultCopyMoveBlockSize = 8
	defaultCopyMoveThreshold = 10.0
	defaultLightingSens      = 3
	defaultNoiseKernelSize   = 9
	defaultNoiseScale        = 10
	defaultRecordRetention   = 60
	defaultPollInterval      = 5
	defaultErrorRetry        = 5
	defaultHeartbeatInterval = 15
	defaultHeartbeatTimeout  = 120
	defaultNotifyTimeout     = 10
	defaultNotifyDedupWindow = 600
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Storage: Storage{
			Backend:        StorageBackendFilesystem,
			FilesystemRoot: defaultStorageRoot,
			MinioBucket:    defaultMinioBucket,
		},
		Analysis: Analysis{
			DetectorWorkers:     defaultDetectorWorkers,
			ELAQuality:          defaultELAQuality,
			ELAScale:            defaultELAScale,
			CFAMethod:           CFAMethodLaplacian,
			CopyMoveBlockSize:   defaultCopyMoveBlockSize,
			CopyMoveThreshold:   defaultCopyMoveThreshold,
			LightingSensitivity: defaultLightingSens,
			NoiseKernelSize:     defaultNoiseKernelSize,
			NoiseScale:          defaultNoiseScale,
			RetentionDays:       defaultRecordRetention,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultPollInterval,
			ErrorRetryInterval: defaultErrorRetry,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
		},
		Notifications: Notifications{
			RequestTimeout:     defaultNotifyTimeout,
			Completed:          true,
			Failed:             true,
			QueueDrained:       true,
			DedupWindowSeconds: defaultNotifyDedupWindow,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
