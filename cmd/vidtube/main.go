// Command vidtube は動画共有サービスのAPIサーバーを起動する。
//
// サブコマンド:
//
//	serve        APIサーバーを起動する（既定）
//	migrate      データベースマイグレーションを適用する
//	healthcheck  起動中のサーバーの/healthを確認する
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/vidtube/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "vidtube: %v\n", err)
		os.Exit(1)
	}
}
