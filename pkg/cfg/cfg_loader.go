package cfg

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// LoadConfig 加载配置文件
func LoadConfig(configDir, configFile, configSuffix string, ptr interface{}) error {
	v := viper.New()
	v.SetConfigName(configFile)
	v.AddConfigPath(configDir)
	v.SetConfigType(configSuffix)
	err := v.ReadInConfig()
	if err != nil {
		return errors.WithMessagef(err, "读取配置文件失败，配置文件：%s, 配置目录：%s, 配置文件类型：%s", configFile, configDir, configSuffix)
	}
	err = v.Unmarshal(ptr)
	if err != nil {
		return errors.WithMessagef(err, "解析配置文件失败，配置文件：%s, 配置目录：%s, 配置文件类型：%s", configFile, configDir, configSuffix)
	}
	return nil
}

// LoadConfigWithEnv 加载配置文件并允许环境变量覆盖
func LoadConfigWithEnv(configDir, configFile, configSuffix, envPrefix string, ptr interface{}) error {
	v := viper.New()
	v.SetConfigName(configFile)
	v.AddConfigPath(configDir)
	v.SetConfigType(configSuffix)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	err := v.ReadInConfig()
	if err != nil {
		return errors.WithMessagef(err, "读取配置文件失败，配置文件：%s, 配置目录：%s", configFile, configDir)
	}
	err = v.Unmarshal(ptr)
	if err != nil {
		return errors.WithMessagef(err, "解析配置文件失败，配置文件：%s, 配置目录：%s", configFile, configDir)
	}
	return nil
}
