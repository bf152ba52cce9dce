package service

import (
	"strings"

	"github.com/paid-tw/paid/internal/config"
	"github.com/paid-tw/paid/internal/constants"
)

// 环境变量来源
const (
	EnvSourceDotenv = "dotenv"
	EnvSourceEnv    = "env"
	EnvSourceNone   = "none"
)

// DoctorService 检查凭证环境变量与配置文件
type DoctorService struct {
	resolver   *config.Resolver
	dotenvKeys map[string]struct{}
}

// NewDoctorService 创建检查服务，dotenvKeys 为从 .env 加载的键名
func NewDoctorService(resolver *config.Resolver, dotenvKeys []string) *DoctorService {
	keys := make(map[string]struct{}, len(dotenvKeys))
	for _, key := range dotenvKeys {
		keys[key] = struct{}{}
	}
	return &DoctorService{resolver: resolver, dotenvKeys: keys}
}

// DoctorEnvReport 环境变量检查结果
type DoctorEnvReport struct {
	Required []string          `json:"required"`
	Missing  []string          `json:"missing"`
	Sources  map[string]string `json:"sources"`
}

// DoctorReport 检查报告
type DoctorReport struct {
	OK        bool            `json:"ok"`
	Provider  string          `json:"provider"`
	HasConfig bool            `json:"hasConfig"`
	Env       DoctorEnvReport `json:"env"`
	PaidEnv   string          `json:"paidEnv,omitempty"`
}

// Run 执行检查
func (s *DoctorService) Run(providerInput string) (*DoctorReport, error) {
	doc := s.resolver.Document()
	provider, err := s.resolver.ResolveProviderNameFrom(doc, providerInput)
	if err != nil {
		return nil, err
	}
	prefix := strings.ToUpper(provider)
	required := []string{
		prefix + constants.EnvSuffixMerchantID,
		prefix + constants.EnvSuffixHashKey,
		prefix + constants.EnvSuffixHashIV,
	}

	report := &DoctorReport{
		Provider: provider,
		Env: DoctorEnvReport{
			Required: required,
			Missing:  []string{},
			Sources:  make(map[string]string, len(required)),
		},
	}
	for _, key := range required {
		if _, ok := s.resolver.Lookup(key); !ok {
			report.Env.Sources[key] = EnvSourceNone
			report.Env.Missing = append(report.Env.Missing, key)
			continue
		}
		if _, fromDotenv := s.dotenvKeys[key]; fromDotenv {
			report.Env.Sources[key] = EnvSourceDotenv
		} else {
			report.Env.Sources[key] = EnvSourceEnv
		}
	}

	_, report.HasConfig = doc.Provider(provider)
	report.PaidEnv, _ = s.resolver.Lookup(constants.EnvMode)
	report.OK = len(report.Env.Missing) == 0
	return report, nil
}
