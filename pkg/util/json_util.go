package util

import (
	"bytes"

	"github.com/goccy/go-json"
)

func StructToJSON(data interface{}) string {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	return string(jsonBytes)
}

func StructToPrettyJSON(data interface{}) string {
	pretty := bytes.Buffer{}
	if err := json.Indent(&pretty, []byte(StructToJSON(data)), "", "  "); err != nil {
		return ""
	}
	return pretty.String()
}
