//go:build !local

package main

// デフォルトのビルド（go build .）でビルドされる
func init() {
	// 本番はサフィックス無しのコレクションを使う
	collectionSuffix = ""
}
