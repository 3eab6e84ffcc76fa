package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
)

// apiRequest はローカルサーバーとLambdaのリクエストを同じように扱うための入れ物です。
type apiRequest struct {
	// raw は *http.Request か events.APIGatewayV2HTTPRequest
	raw     interface{}
	params  map[string]string
	session *Session
	// allowQueryToken が true のとき、ヘッダーが無ければ token クエリをセッショントークンとして使う
	allowQueryToken bool
}

// body はリクエストソース（ローカルサーバー or Lambda）に応じてリクエストボディを取得します
func (r *apiRequest) body() ([]byte, error) {
	switch req := r.raw.(type) {
	case *http.Request:
		if req.Body == nil {
			return nil, nil
		}
		defer req.Body.Close()
		return io.ReadAll(req.Body)
	case events.APIGatewayV2HTTPRequest:
		return []byte(req.Body), nil
	default:
		return nil, fmt.Errorf("unknown request type: %T", req)
	}
}

// decode はJSONのボディを v にデコードします。
func (r *apiRequest) decode(v interface{}) error {
	b, err := r.body()
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return fmt.Errorf("%w: request body is empty", ErrInvalidInput)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func (r *apiRequest) header(name string) string {
	switch req := r.raw.(type) {
	case *http.Request:
		return req.Header.Get(name)
	case events.APIGatewayV2HTTPRequest:
		// API Gatewayはヘッダー名を小文字にして渡す
		if v, ok := req.Headers[strings.ToLower(name)]; ok {
			return v
		}
		return req.Headers[name]
	}
	return ""
}

func (r *apiRequest) query(name string) string {
	switch req := r.raw.(type) {
	case *http.Request:
		return req.URL.Query().Get(name)
	case events.APIGatewayV2HTTPRequest:
		return req.QueryStringParameters[name]
	}
	return ""
}

// bearerToken は Authorization ヘッダーの "Bearer " の後ろを返します。
func (r *apiRequest) bearerToken() string {
	parts := strings.Fields(r.header("Authorization"))
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		if r.allowQueryToken {
			return r.query("token")
		}
		return ""
	}
	return parts[1]
}

// parseMonthQuery はクエリパラメータを解析して、年・月・移動方向を取得します
func parseMonthQuery(r *apiRequest, now time.Time) (int, int, string, error) {
	yearStr := r.query("year")
	monthStr := r.query("month")
	moveStr := r.query("move")

	// 年と月の基準値を格納する変数
	var baseYear, baseMonth int

	// クエリパラメータがあればそれを基準に、なければ現在日時を基準に年と月を設定
	if yearStr != "" && monthStr != "" {
		var err error
		baseYear, err = strconv.Atoi(yearStr)
		if err != nil {
			return 0, 0, "", fmt.Errorf("%w: invalid year parameter", ErrInvalidInput)
		}

		baseMonth, err = strconv.Atoi(monthStr)
		if err != nil {
			return 0, 0, "", fmt.Errorf("%w: invalid month parameter", ErrInvalidInput)
		}

		if baseMonth < 1 || baseMonth > 12 {
			return 0, 0, "", fmt.Errorf("%w: month must be between 1 and 12", ErrInvalidInput)
		}
	} else {
		baseYear = now.Year()
		baseMonth = int(now.Month())
	}

	// moveStr の値チェック
	if moveStr != "" && moveStr != "next" && moveStr != "prev" {
		return 0, 0, "", fmt.Errorf("%w: invalid move parameter", ErrInvalidInput)
	}
	return baseYear, baseMonth, moveStr, nil
}
