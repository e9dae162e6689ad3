package main

import (
	formatter "github.com/bluexlab/logrus-formatter"
	"github.com/openmon/sitecert/pkg/cert_manager/cli"
)

func main() {
	formatter.InitLogger()
	cli := cli.App{}
	cli.Run()
}
