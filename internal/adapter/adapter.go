package adapter

import (
	"fmt"

	"MillSync/internal/adapter/mes"
	"MillSync/internal/adapter/mesapi"
	"MillSync/internal/config"
	"MillSync/internal/interfaces"

	"github.com/sirupsen/logrus"
)

// NewEventSource 按配置协议选择 MES 事件源实现：db=直连库，rest=HTTP 网关
func NewEventSource(cfg *config.MESConfig, logger *logrus.Logger) (interfaces.EventSource, error) {
	switch cfg.Protocol {
	case "db", "":
		return mes.NewAdapter(cfg, logger)
	case "rest":
		return mesapi.NewAdapter(cfg, logger), nil
	default:
		return nil, fmt.Errorf("未支持的MES协议: %s", cfg.Protocol)
	}
}
