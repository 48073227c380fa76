package duplicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"강남", "역삼", 2},
		{"스타벅스 강남점", "스타벅스 역삼점", 2},
		{"마트", "마트", 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, Levenshtein(tt.a, tt.b))
			assert.Equal(t, tt.want, Levenshtein(tt.b, tt.a))
		})
	}
}

func TestStringSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, StringSimilarity("ABC", "abc"))
	assert.Equal(t, 1.0, StringSimilarity("  a   b ", "a b"))
	assert.Equal(t, 0.0, StringSimilarity("", "x"))
	assert.Equal(t, 0.0, StringSimilarity("   ", "   "))
	assert.InDelta(t, 0.75, StringSimilarity("스타벅스 강남점", "스타벅스 역삼점"), 1e-12)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "gs25 역삼점", Normalize("  GS25\t역삼점\n"))
	assert.Equal(t, "", Normalize(" \t "))
}

func TestMerchantCategories(t *testing.T) {
	tests := []struct {
		desc string
		want MerchantCategory
	}{
		{"스타벅스 강남점", MerchantCafe},
		{"GS25 역삼점", MerchantGrocery},
		{"GS25역삼점", MerchantGrocery},
		{"CU 선릉역점", MerchantGrocery},
		{"emart24 판교점", MerchantGrocery},
		{"KTX 서울-부산", MerchantTransit},
		{"이마트 성수점", MerchantGrocery},
		{"SK에너지 셀프주유소", MerchantFuel},
		{"서울내과의원", MerchantMedical},
		{"카카오T 택시", MerchantTransit},
		{"쿠팡 로켓배송", MerchantOnline},
		{"교촌치킨", MerchantRestaurant},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Contains(t, MerchantCategories(tt.desc), tt.want)
		})
	}

	assert.Empty(t, MerchantCategories("월세"))
	assert.Empty(t, MerchantCategories("cucumber salad"))
	assert.Empty(t, MerchantCategories("Lemart bakery"))
	assert.NotContains(t, MerchantCategories("Mosgsgood"), MerchantOnline)
}
