package i18n

import "sync/atomic"

// Translator retrieves localized messages for error codes.
// data provides optional metadata to embed in the message (for example,
// "expected" or "key").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	switch t.lang {
	case "ja":
		switch code {
		case "invalid_type":
			return "型が不正です"
		case "required":
			return "必須フィールドが不足しています"
		case "discriminator_missing":
			return "判別子がありません"
		case "discriminator_unknown":
			return "未知の判別子です"
		case "unknown_variant":
			return "未知の結果バリアントです"
		case "duplicate_key":
			return "キーが重複しています"
		case "max_depth":
			return "ネストが深すぎます"
		case "truncated":
			return "入力が大きすぎます"
		case "trailing_data":
			return "値の後に余分なデータがあります"
		case "parse_error":
			return "解析エラー"
		case "duplicate_wire_key":
			return "ワイヤキーが重複しています"
		case "duplicate_field":
			return "フィールド名が重複しています"
		case "duplicate_discriminant":
			return "判別子が重複しています"
		case "duplicate_tag":
			return "タグ名が重複しています"
		case "invalid_schema":
			return "スキーマが不正です"
		case "transport_error":
			return "通信エラー"
		}
	default: // "en"
		switch code {
		case "invalid_type":
			return "invalid type"
		case "required":
			return "required field missing"
		case "discriminator_missing":
			return "discriminator missing"
		case "discriminator_unknown":
			return "unknown discriminator"
		case "unknown_variant":
			return "unknown result variant"
		case "duplicate_key":
			return "duplicate key"
		case "max_depth":
			return "max depth exceeded"
		case "truncated":
			return "input too large"
		case "trailing_data":
			return "unexpected data after value"
		case "parse_error":
			return "parse error"
		case "duplicate_wire_key":
			return "duplicate wire key"
		case "duplicate_field":
			return "duplicate field name"
		case "duplicate_discriminant":
			return "duplicate discriminant"
		case "duplicate_tag":
			return "duplicate tag name"
		case "invalid_schema":
			return "invalid schema"
		case "transport_error":
			return "transport error"
		}
	}
	return code
}

var currentTranslator atomic.Value

func init() { currentTranslator.Store(Translator(dictTranslator{lang: "en"})) }

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	currentTranslator.Store(Translator(dictTranslator{lang: lang}))
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version). nil restores the English dictionary.
func SetTranslator(tr Translator) {
	if tr == nil {
		tr = dictTranslator{lang: "en"}
	}
	currentTranslator.Store(tr)
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string {
	return currentTranslator.Load().(Translator).Message(code, data)
}
