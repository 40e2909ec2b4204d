package server

import "context"

// Server 定义服务器生命周期。
type Server interface {
	// Start 阻塞运行直到 ctx 被取消或服务出错。
	Start(ctx context.Context) error
	// Stop 优雅地停止服务器。
	Stop(ctx context.Context) error
}
