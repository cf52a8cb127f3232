// Package inferencepb holds the generated bindings for proto/inference.proto.
package inferencepb

//go:generate protoc -I ../../proto --go_out=. --go_opt=paths=source_relative --go-grpc_out=. --go-grpc_opt=paths=source_relative inference.proto
