package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "storygraph.v1.NodeService"

// NodeServiceServer is the server API for the node service.
type NodeServiceServer interface {
	CreateNode(context.Context, *CreateNodeRequest) (*Node, error)
	FindNodeById(context.Context, *FindNodeByIdRequest) (*Node, error)
	FindNodesByTitle(context.Context, *FindNodesByTitleRequest) (*FindNodesByTitleResponse, error)
	UpdateNode(context.Context, *UpdateNodeRequest) (*Node, error)
	DeleteNodeById(context.Context, *DeleteNodeByIdRequest) (*Node, error)
	// ForkNode returns the new child node.
	ForkNode(context.Context, *ForkNodeRequest) (*Node, error)
	// LinkNodes returns the child endpoint of the new edge.
	LinkNodes(context.Context, *LinkNodesRequest) (*Node, error)
}

// RegisterNodeServiceServer registers srv on s.
func RegisterNodeServiceServer(s grpc.ServiceRegistrar, srv NodeServiceServer) {
	s.RegisterService(&nodeServiceDesc, srv)
}

// unary builds a grpc.MethodHandler for one request type.
func unary[Req any, Resp any](method string, call func(NodeServiceServer, context.Context, *Req) (Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(NodeServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(NodeServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var nodeServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*NodeServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateNode", Handler: unary("CreateNode", NodeServiceServer.CreateNode)},
		{MethodName: "FindNodeById", Handler: unary("FindNodeById", NodeServiceServer.FindNodeById)},
		{MethodName: "FindNodesByTitle", Handler: unary("FindNodesByTitle", NodeServiceServer.FindNodesByTitle)},
		{MethodName: "UpdateNode", Handler: unary("UpdateNode", NodeServiceServer.UpdateNode)},
		{MethodName: "DeleteNodeById", Handler: unary("DeleteNodeById", NodeServiceServer.DeleteNodeById)},
		{MethodName: "ForkNode", Handler: unary("ForkNode", NodeServiceServer.ForkNode)},
		{MethodName: "LinkNodes", Handler: unary("LinkNodes", NodeServiceServer.LinkNodes)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storygraph/v1/node.msgpack",
}

// NodeServiceClient is the client API for the node service.
type NodeServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewNodeServiceClient returns a client that sends every call with the
// msgpack codec.
func NewNodeServiceClient(cc grpc.ClientConnInterface) *NodeServiceClient {
	return &NodeServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *NodeServiceClient, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *NodeServiceClient) CreateNode(ctx context.Context, in *CreateNodeRequest, opts ...grpc.CallOption) (*Node, error) {
	return invoke[Node](ctx, c, "CreateNode", in, opts)
}

func (c *NodeServiceClient) FindNodeById(ctx context.Context, in *FindNodeByIdRequest, opts ...grpc.CallOption) (*Node, error) {
	return invoke[Node](ctx, c, "FindNodeById", in, opts)
}

func (c *NodeServiceClient) FindNodesByTitle(ctx context.Context, in *FindNodesByTitleRequest, opts ...grpc.CallOption) (*FindNodesByTitleResponse, error) {
	return invoke[FindNodesByTitleResponse](ctx, c, "FindNodesByTitle", in, opts)
}

func (c *NodeServiceClient) UpdateNode(ctx context.Context, in *UpdateNodeRequest, opts ...grpc.CallOption) (*Node, error) {
	return invoke[Node](ctx, c, "UpdateNode", in, opts)
}

func (c *NodeServiceClient) DeleteNodeById(ctx context.Context, in *DeleteNodeByIdRequest, opts ...grpc.CallOption) (*Node, error) {
	return invoke[Node](ctx, c, "DeleteNodeById", in, opts)
}

func (c *NodeServiceClient) ForkNode(ctx context.Context, in *ForkNodeRequest, opts ...grpc.CallOption) (*Node, error) {
	return invoke[Node](ctx, c, "ForkNode", in, opts)
}

func (c *NodeServiceClient) LinkNodes(ctx context.Context, in *LinkNodesRequest, opts ...grpc.CallOption) (*Node, error) {
	return invoke[Node](ctx, c, "LinkNodes", in, opts)
}
