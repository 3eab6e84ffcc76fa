//go:build local

package main

import "fmt"

// ローカル実行時（go run --tags=local .）にのみビルドされる
func init() {
	// テスト用コレクションに書き込む
	collectionSuffix = "_test"

	fmt.Println("========================================")
	fmt.Println("    RUNNING IN LOCAL MODE")
	fmt.Printf("    Firestore Collections: %s, %s, %s\n",
		collectionName(usersCollection), collectionName(eventsCollection), collectionName(notificationsCollection))
	fmt.Println("========================================")
}
