package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 课程资料允许的类型
const (
	MimeImage       = "image/"
	MimeVideo       = "video/"
	MimePDF         = "application/pdf"
)

const MaxMaterialSize = 50 << 20
