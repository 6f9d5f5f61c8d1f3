// Package api は各フィーチャーのHTTPハンドラーで共有するレスポンス型を定義します。
package api

// ErrorResponse はエラー時のレスポンスです。
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse は処理結果のみを返すレスポンスです。
type StatusResponse struct {
	Status string `json:"status"`
}
