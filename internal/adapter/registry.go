package adapter

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"OrderSync/internal/config"
	"OrderSync/internal/interfaces"
	"OrderSync/internal/model"
)

// 全局工厂函数注册表，适配器包在init中自注册
var factoryRegistry = make(map[model.PlatformType]interfaces.Factory)

// Register 供适配器init函数调用，注册工厂函数
func Register(platform model.PlatformType, factory interfaces.Factory) {
	if factory == nil {
		panic(fmt.Sprintf("平台%s的工厂函数不能为nil", platform))
	}
	if _, exists := factoryRegistry[platform]; exists {
		logrus.Warnf("平台%s的适配器已注册，将覆盖原有实现", platform)
	}
	factoryRegistry[platform] = factory
}

// GetFactory 获取指定平台的工厂函数
func GetFactory(platform model.PlatformType) (interfaces.Factory, bool) {
	factory, ok := factoryRegistry[platform]
	return factory, ok
}

// ListFactories 列出所有已注册的工厂函数平台
func ListFactories() []model.PlatformType {
	var platforms []model.PlatformType
	for p := range factoryRegistry {
		platforms = append(platforms, p)
	}
	return platforms
}

// PlatformRegistry 按配置实例化的适配器注册表
type PlatformRegistry struct {
	cfg      *config.Config
	logger   *logrus.Logger
	adapters map[model.PlatformType]interfaces.PlatformAdapter
}

func NewPlatformRegistry(cfg *config.Config, logger *logrus.Logger) *PlatformRegistry {
	r := &PlatformRegistry{
		cfg:      cfg,
		logger:   logger,
		adapters: make(map[model.PlatformType]interfaces.PlatformAdapter),
	}
	r.initAdaptersFromFactories()
	return r
}

// initAdaptersFromFactories 遍历配置中的平台，匹配工厂函数创建实例
func (r *PlatformRegistry) initAdaptersFromFactories() {
	for platformStr, platformCfg := range r.cfg.Platforms {
		platformType := model.PlatformType(platformStr)

		factory, ok := GetFactory(platformType)
		if !ok {
			r.logger.WithField("platform", platformType).Error("未找到对应的工厂函数")
			continue
		}

		cfgCopy := platformCfg
		adapterIns := factory(&cfgCopy, r.logger)
		if adapterIns == nil {
			r.logger.WithField("platform", platformType).Error("工厂函数返回nil适配器实例")
			continue
		}
		if adapterIns.GetType() != platformType {
			r.logger.WithFields(logrus.Fields{
				"config_platform":  platformType,
				"adapter_platform": adapterIns.GetType(),
			}).Error("适配器平台类型与配置不匹配")
			continue
		}

		r.adapters[platformType] = adapterIns
		r.logger.WithField("platform", platformType).Info("适配器实例初始化成功")
	}
}

// ListRegisteredPlatforms 获取所有已初始化的平台类型列表
func (r *PlatformRegistry) ListRegisteredPlatforms() []model.PlatformType {
	var platforms []model.PlatformType
	for p := range r.adapters {
		platforms = append(platforms, p)
	}
	return platforms
}

// GetAdapter 获取适配器实例
func (r *PlatformRegistry) GetAdapter(platform model.PlatformType) (interfaces.PlatformAdapter, error) {
	adapterIns, ok := r.adapters[platform]
	if !ok {
		var registered []string
		for p := range r.adapters {
			registered = append(registered, string(p))
		}
		return nil, fmt.Errorf("平台%s未初始化适配器实例（已初始化：%v）", platform, registered)
	}
	return adapterIns, nil
}

// GetPlatformCount 获取已初始化实例的平台数量
func (r *PlatformRegistry) GetPlatformCount() int {
	return len(r.adapters)
}
