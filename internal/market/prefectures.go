package market

import "strings"

// Prefecture is one of the 47 Japanese prefectures.
type Prefecture struct {
	Name string
	// Code is the two-digit JIS X 0401 code.
	Code string
	// Slug is the romanized name used in land-price site URLs.
	Slug string
}

var prefectures = []Prefecture{
	{"北海道", "01", "hokkaido"}, {"青森県", "02", "aomori"}, {"岩手県", "03", "iwate"},
	{"宮城県", "04", "miyagi"}, {"秋田県", "05", "akita"}, {"山形県", "06", "yamagata"},
	{"福島県", "07", "fukushima"}, {"茨城県", "08", "ibaraki"}, {"栃木県", "09", "tochigi"},
	{"群馬県", "10", "gunma"}, {"埼玉県", "11", "saitama"}, {"千葉県", "12", "chiba"},
	{"東京都", "13", "tokyo"}, {"神奈川県", "14", "kanagawa"}, {"新潟県", "15", "niigata"},
	{"富山県", "16", "toyama"}, {"石川県", "17", "ishikawa"}, {"福井県", "18", "fukui"},
	{"山梨県", "19", "yamanashi"}, {"長野県", "20", "nagano"}, {"岐阜県", "21", "gifu"},
	{"静岡県", "22", "shizuoka"}, {"愛知県", "23", "aichi"}, {"三重県", "24", "mie"},
	{"滋賀県", "25", "shiga"}, {"京都府", "26", "kyoto"}, {"大阪府", "27", "osaka"},
	{"兵庫県", "28", "hyogo"}, {"奈良県", "29", "nara"}, {"和歌山県", "30", "wakayama"},
	{"鳥取県", "31", "tottori"}, {"島根県", "32", "shimane"}, {"岡山県", "33", "okayama"},
	{"広島県", "34", "hiroshima"}, {"山口県", "35", "yamaguchi"}, {"徳島県", "36", "tokushima"},
	{"香川県", "37", "kagawa"}, {"愛媛県", "38", "ehime"}, {"高知県", "39", "kochi"},
	{"福岡県", "40", "fukuoka"}, {"佐賀県", "41", "saga"}, {"長崎県", "42", "nagasaki"},
	{"熊本県", "43", "kumamoto"}, {"大分県", "44", "oita"}, {"宮崎県", "45", "miyazaki"},
	{"鹿児島県", "46", "kagoshima"}, {"沖縄県", "47", "okinawa"},
}

var prefecturesByName = func() map[string]Prefecture {
	m := make(map[string]Prefecture, len(prefectures))
	for _, p := range prefectures {
		m[p.Name] = p
	}
	return m
}()

// LookupPrefecture finds a prefecture by its full Japanese name.
func LookupPrefecture(name string) (Prefecture, bool) {
	p, ok := prefecturesByName[strings.TrimSpace(name)]
	return p, ok
}

// CleanCityName removes every 市, 区, 町 and 村 character from city. The
// result is used for substring matching against municipality listings.
func CleanCityName(city string) string {
	return strings.NewReplacer("市", "", "区", "", "町", "", "村", "").Replace(strings.TrimSpace(city))
}
