package models

// DownloadRequest 单次下载请求, 不持久化
type DownloadRequest struct {
	URL       string
	ClientID  string // 客户端标识, 用于限流
	RequestID string
}
