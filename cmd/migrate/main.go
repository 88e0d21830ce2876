// Package main は accounts テーブルのマイグレーションを実行するCLIです。
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Getenv).Execute(); err != nil {
		os.Exit(1)
	}
}
