package util

import (
	"encoding/json"
	"strings"

	"github.com/hatcher/taskchat/pkg/logs"
	"gopkg.in/yaml.v3"
)

func Convert[T interface{}](src interface{}) (*T, error) {
	b, err := json.Marshal(src)
	if err != nil {
		return nil, err
	}
	var dat T
	err = json.Unmarshal(b, &dat)
	if err != nil {
		return nil, err
	}
	return &dat, nil
}

func ToJsonIgnoreError(o interface{}) string {
	if o == nil {
		logs.Errorf("[ToJsonIgnoreError]对象为nil")
		return ""
	}
	b, err := json.Marshal(o)
	if err != nil {
		logs.Errorf("[ToJsonIgnoreError]对象转换为json失败：%s", err.Error())
		return ""
	}
	return string(b)
}

// Yml2Json yml转json
func Yml2Json(content string) (string, error) {
	ymlContent := strings.ReplaceAll(content, "\t", "")
	var yamlObj interface{}
	if err := yaml.Unmarshal([]byte(ymlContent), &yamlObj); err != nil {
		logs.Errorf("解析yaml错误：%v", err)
		return "", err
	}
	jsonBytes, err := json.MarshalIndent(yamlObj, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonBytes), nil
}

// Yml2Map yml转map
func Yml2Map(content string) (map[string]interface{}, error) {
	ymlJson, err := Yml2Json(content)
	if err != nil {
		return nil, err
	}
	var yamlObj map[string]interface{}
	if err := json.Unmarshal([]byte(ymlJson), &yamlObj); err != nil {
		return nil, err
	}
	return yamlObj, nil
}
