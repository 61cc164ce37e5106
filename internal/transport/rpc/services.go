package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	CheckoutServiceName  = "omnipos.checkout.v1.CheckoutService"
	CartServiceName      = "omnipos.checkout.v1.CartService"
	InventoryServiceName = "omnipos.checkout.v1.InventoryService"
)

type CheckoutServiceServer interface {
	Checkout(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateOrderStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type CartServiceServer interface {
	GetCart(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	AddItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RemoveItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type InventoryServiceServer interface {
	GetStockLevel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Restock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	AdjustStock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SetThreshold(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListLowStock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListTransactions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// method builds the MethodDesc protoc-gen-go-grpc would generate for a
// Struct -> Struct unary call.
func method[S any](service, name string, call func(S, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(S), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var CheckoutServiceDesc = grpc.ServiceDesc{
	ServiceName: CheckoutServiceName,
	HandlerType: (*CheckoutServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method(CheckoutServiceName, "Checkout", CheckoutServiceServer.Checkout),
		method(CheckoutServiceName, "GetOrder", CheckoutServiceServer.GetOrder),
		method(CheckoutServiceName, "UpdateOrderStatus", CheckoutServiceServer.UpdateOrderStatus),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "omnipos/checkout/v1/checkout.proto",
}

var CartServiceDesc = grpc.ServiceDesc{
	ServiceName: CartServiceName,
	HandlerType: (*CartServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method(CartServiceName, "GetCart", CartServiceServer.GetCart),
		method(CartServiceName, "AddItem", CartServiceServer.AddItem),
		method(CartServiceName, "UpdateItem", CartServiceServer.UpdateItem),
		method(CartServiceName, "RemoveItem", CartServiceServer.RemoveItem),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "omnipos/checkout/v1/cart.proto",
}

var InventoryServiceDesc = grpc.ServiceDesc{
	ServiceName: InventoryServiceName,
	HandlerType: (*InventoryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method(InventoryServiceName, "GetStockLevel", InventoryServiceServer.GetStockLevel),
		method(InventoryServiceName, "Restock", InventoryServiceServer.Restock),
		method(InventoryServiceName, "AdjustStock", InventoryServiceServer.AdjustStock),
		method(InventoryServiceName, "SetThreshold", InventoryServiceServer.SetThreshold),
		method(InventoryServiceName, "ListLowStock", InventoryServiceServer.ListLowStock),
		method(InventoryServiceName, "ListTransactions", InventoryServiceServer.ListTransactions),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "omnipos/checkout/v1/inventory.proto",
}

func RegisterCheckoutServiceServer(s grpc.ServiceRegistrar, srv CheckoutServiceServer) {
	s.RegisterService(&CheckoutServiceDesc, srv)
}

func RegisterCartServiceServer(s grpc.ServiceRegistrar, srv CartServiceServer) {
	s.RegisterService(&CartServiceDesc, srv)
}

func RegisterInventoryServiceServer(s grpc.ServiceRegistrar, srv InventoryServiceServer) {
	s.RegisterService(&InventoryServiceDesc, srv)
}
