package usecase

import (
	"strings"

	"crypto_backend/internal/feature/coins/domain/entity"
)

// DefaultReferenceCoin はベータ計算の基準となるコインです。
const DefaultReferenceCoin = "bitcoin"

// trackedCoins は価格取得とリスク計算の対象となるコインです（表示順）。
var trackedCoins = []entity.Coin{
	{ID: "bitcoin", Symbol: "BTC"},
	{ID: "ethereum", Symbol: "ETH"},
	{ID: "solana", Symbol: "SOL"},
	{ID: "cardano", Symbol: "ADA"},
	{ID: "dogecoin", Symbol: "DOGE"},
	{ID: "ripple", Symbol: "XRP"},
	{ID: "litecoin", Symbol: "LTC"},
	{ID: "polkadot", Symbol: "DOT"},
	{ID: "tron", Symbol: "TRX"},
	{ID: "chainlink", Symbol: "LINK"},
}

// TrackedCoins は対象コインのコピーを返します。
func TrackedCoins() []entity.Coin {
	out := make([]entity.Coin, len(trackedCoins))
	copy(out, trackedCoins)
	return out
}

// TrackedIDs は対象コインのIDを表示順で返します。
func TrackedIDs() []string {
	ids := make([]string, 0, len(trackedCoins))
	for _, c := range trackedCoins {
		ids = append(ids, c.ID)
	}
	return ids
}

// SymbolFor はコインIDに対応するティッカーを返します。
// 未登録のコインは先頭3文字を大文字にしたものを使います。
func SymbolFor(id string) string {
	id = strings.ToLower(id)
	for _, c := range trackedCoins {
		if c.ID == id {
			return c.Symbol
		}
	}
	r := []rune(id)
	if len(r) > 3 {
		r = r[:3]
	}
	return strings.ToUpper(string(r))
}

// NormalizeIDs はカンマ区切りのコインIDを小文字化・空要素除去・重複除去して返します。
func NormalizeIDs(csv string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, p := range strings.Split(csv, ",") {
		id := strings.ToLower(strings.TrimSpace(p))
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
