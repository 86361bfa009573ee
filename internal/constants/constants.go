package constants

import "os"

const (
	UserdataDir        = "userdata"
	StateDir           = ".regsync"
	SandboxStateFile   = "sandbox.yaml"
	TransferLedgerFile = "transfers.yaml"
	ArchiveFile        = "notifications.db"
	MetricsTextfile    = "regsync.prom"
	DefaultEnv         = "dev"
)

const (
	FilePermissionOwnerRW os.FileMode = 0o600
	DirPermission         os.FileMode = 0o755
)

const DefaultDNSRecordTTL = 600
