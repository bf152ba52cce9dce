package config

import "sync"

// CachedStore 单次进程内缓存配置文档，写入时同步更新缓存
type CachedStore struct {
	mu     sync.Mutex
	inner  Store
	cached *Document
}

// NewCachedStore 包装底层存储
func NewCachedStore(inner Store) *CachedStore {
	return &CachedStore{inner: inner}
}

// Load 首次成功读取后返回缓存副本，读取失败不缓存
func (s *CachedStore) Load() (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached == nil {
		doc, err := s.inner.Load()
		if err != nil {
			return nil, err
		}
		if doc == nil {
			doc = &Document{}
		}
		s.cached = doc
	}
	return s.cached.clone(), nil
}

// Save 写入底层存储，成功后替换缓存
func (s *CachedStore) Save(doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.inner.Save(doc); err != nil {
		return err
	}
	if doc == nil {
		doc = &Document{}
	}
	s.cached = doc.clone()
	return nil
}

// Invalidate 丢弃缓存，下次 Load 重新读取
func (s *CachedStore) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

func (d *Document) clone() *Document {
	out := *d
	if d.Providers != nil {
		out.Providers = make(map[string]ProviderConfig, len(d.Providers))
		for name, section := range d.Providers {
			if section.Sandbox != nil {
				sandbox := *section.Sandbox
				section.Sandbox = &sandbox
			}
			out.Providers[name] = section
		}
	}
	if d.Log != nil {
		log := *d.Log
		out.Log = &log
	}
	if d.HTTP != nil {
		httpCfg := *d.HTTP
		out.HTTP = &httpCfg
	}
	if d.Gateway != nil {
		gateway := *d.Gateway
		out.Gateway = &gateway
	}
	return &out
}
