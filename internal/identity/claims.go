// Package identity は外部IdPのクレームをローカルプロファイルへ同期する。
package identity

import "strings"

// ClaimSet はIdPが認証済みユーザーについて主張するクレームのキー・バリュー集合。
// OIDCハンドシェイク自体はこのパッケージの対象外で、検証済みのクレームのみを受け取る。
type ClaimSet map[string]string

// 論理フィールドごとのクレームキー候補。先頭から順に最初の非空値を採用する。
// プロバイダーによってキー名が異なるため、条件分岐ではなく候補テーブルで吸収する。
var (
	subjectClaimKeys    = []string{"sub", "user_id"}
	emailClaimKeys      = []string{"email"}
	verifiedClaimKeys   = []string{"email_verified"}
	nameClaimKeys       = []string{"name", "preferred_username"}
	givenNameClaimKeys  = []string{"given_name"}
	familyNameClaimKeys = []string{"family_name"}
)

// first は候補キーを順に探し、最初の非空値を返す。
func (c ClaimSet) first(keys []string) string {
	for _, key := range keys {
		if v, ok := c[key]; ok {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// Subject は安定したサブジェクト識別子を返す。見つからない場合は空文字列。
func (c ClaimSet) Subject() string {
	return c.first(subjectClaimKeys)
}

// Email はメールアドレスクレームを返す。見つからない場合は空文字列。
func (c ClaimSet) Email() string {
	return c.first(emailClaimKeys)
}

// EmailVerified はメール確認済みフラグと、クレームが存在したかどうかを返す。
// クレームが無い場合は既存プロファイルの値を消さないため、存在有無を区別する。
func (c ClaimSet) EmailVerified() (verified bool, present bool) {
	v := c.first(verifiedClaimKeys)
	if v == "" {
		return false, false
	}
	return strings.EqualFold(v, "true"), true
}

// DisplayName は表示名を返す。name系クレームが無い場合は
// given_nameとfamily_nameを結合して組み立てる。
func (c ClaimSet) DisplayName() string {
	if name := c.first(nameClaimKeys); name != "" {
		return name
	}
	given := c.first(givenNameClaimKeys)
	family := c.first(familyNameClaimKeys)
	return strings.TrimSpace(given + " " + family)
}
