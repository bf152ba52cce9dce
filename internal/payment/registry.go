package payment

import (
	"context"
	"sort"
	"strings"

	"github.com/paid-tw/paid/internal/apperr"
	"github.com/paid-tw/paid/internal/constants"
)

// Registry 支付服务注册表，创建后只读
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry 按固定列表创建注册表，同名时后者覆盖前者
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		r.adapters[adapter.Name()] = adapter
	}
	return r
}

// Get 获取支付服务适配器
func (r *Registry) Get(name string) (Adapter, error) {
	adapter, ok := r.adapters[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, apperr.Validation("unsupported provider: " + name)
	}
	return adapter, nil
}

// Names 返回已注册的支付服务名（排序）
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type unimplemented struct {
	name string
}

// Unimplemented 返回所有操作均未实现的适配器
func Unimplemented(name string) Adapter {
	return unimplemented{name: name}
}

func (u unimplemented) Name() string {
	return u.name
}

func (u unimplemented) MapCreate(CreateInput) (Payload, error) {
	return nil, NotImplemented(u.name, constants.OperationCreate)
}

func (u unimplemented) MapGet(GetInput) (Payload, error) {
	return nil, NotImplemented(u.name, constants.OperationGet)
}

func (u unimplemented) MapRefund(RefundInput) (Payload, error) {
	return nil, NotImplemented(u.name, constants.OperationRefund)
}

func (u unimplemented) CreatePayment(context.Context, Credentials, Payload) (*Result, error) {
	return nil, NotImplemented(u.name, constants.OperationCreate)
}

func (u unimplemented) GetPayment(context.Context, Credentials, Payload) (*Result, error) {
	return nil, NotImplemented(u.name, constants.OperationGet)
}

func (u unimplemented) RefundPayment(context.Context, Credentials, Payload) (*Result, error) {
	return nil, NotImplemented(u.name, constants.OperationRefund)
}
