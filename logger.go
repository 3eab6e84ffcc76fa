package main

import (
	"go.uber.org/zap"
)

// logger はプロジェクト全体で共有するロガーです。initLogger が呼ばれるまでは何も出力しません。
var logger = zap.NewNop().Sugar()

// initLogger はビルドモードに応じたロガーを組み立てます。
// ローカルでは人間が読みやすいコンソール形式、本番(Lambda)ではJSON形式になります。
func initLogger(development bool) {
	var (
		l   *zap.Logger
		err error
	)
	if development {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		// ロガーが作れなくても処理は続ける
		return
	}
	logger = l.Sugar()
}

func syncLogger() {
	_ = logger.Sync()
}
