// Package station holds the fixed region -> station reference data of the
// forecast site.
package station

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrUnknownStation = errors.New("unknown station")

// Station is one observation station. Segment is the URL path segment the site
// uses for it.
type Station struct {
	Region  string `json:"region"`
	Name    string `json:"name"`
	Segment string `json:"segment"`
}

type Region struct {
	Name     string    `json:"name"`
	Stations []Station `json:"stations"`
}

// URL returns the station's listing root under baseURL.
func (s Station) URL(baseURL string) string {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return baseURL + url.PathEscape(s.Segment) + "/"
}

func region(name string, pairs ...string) Region {
	r := Region{Name: name}
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Stations = append(r.Stations, Station{Region: name, Name: pairs[i], Segment: pairs[i+1]})
	}
	return r
}

var regions = []Region{
	region("北海道",
		"稚内地方", "稚内地方気象台",
		"旭川地方", "旭川地方気象台",
		"網走地方", "網走地方気象台",
		"釧路地方", "釧路地方気象台",
		"室蘭地方", "室蘭地方気象台",
		"札幌管区", "札幌管区気象台",
		"函館地方", "函館地方気象台",
	),
	region("東北",
		"青森地方", "青森地方気象台",
		"盛岡地方", "盛岡地方気象台",
		"仙台管区", "仙台管区気象台",
		"秋田地方", "秋田地方気象台",
		"山形地方", "山形地方気象台",
		"福島地方", "福島地方気象台",
	),
	region("関東甲信",
		"水戸地方", "水戸地方気象台",
		"宇都宮地方", "宇都宮地方気象台",
		"前橋地方", "前橋地方気象台",
		"熊谷地方", "熊谷地方気象台",
		"銚子地方", "銚子地方気象台",
		"東京", "気象庁",
		"横浜地方", "横浜地方気象台",
		"甲府地方", "甲府地方気象台",
		"長野地方", "長野地方気象台",
	),
	region("北陸",
		"新潟地方", "新潟地方気象台",
		"富山地方", "富山地方気象台",
		"金沢地方", "金沢地方気象台",
		"福井地方", "福井地方気象台",
	),
	region("東海",
		"岐阜地方", "岐阜地方気象台",
		"静岡地方", "静岡地方気象台",
		"名古屋地方", "名古屋地方気象台",
		"津地方", "津地方気象台",
	),
	region("近畿",
		"彦根地方", "彦根地方気象台",
		"京都地方", "京都地方気象台",
		"大阪管区", "大阪管区気象台",
		"神戸地方", "神戸地方気象台",
		"奈良地方", "奈良地方気象台",
		"和歌山地方", "和歌山地方気象台",
	),
	region("中国",
		"鳥取地方", "鳥取地方気象台",
		"松江地方", "松江地方気象台",
		"岡山地方", "岡山地方気象台",
		"広島地方", "広島地方気象台",
		"下関地方", "下関地方気象台",
	),
	region("四国",
		"徳島地方", "徳島地方気象台",
		"高松地方", "高松地方気象台",
		"松山地方", "松山地方気象台",
		"高知地方", "高知地方気象台",
	),
	region("九州",
		"福岡管区", "福岡管区気象台",
		"佐賀地方", "佐賀地方気象台",
		"長崎地方", "長崎地方気象台",
		"熊本地方", "熊本地方気象台",
		"大分地方", "大分地方気象台",
		"宮崎地方", "宮崎地方気象台",
		"鹿児島地方", "鹿児島地方気象台",
	),
	region("沖縄",
		"沖縄", "沖縄気象台",
		"南大東島地方", "南大東島地方気象台",
		"宮古島地方", "宮古島地方気象台",
		"石垣島地方", "石垣島地方気象台",
	),
}

// Regions returns a copy of the reference data in display order.
func Regions() []Region {
	out := make([]Region, len(regions))
	for i, r := range regions {
		out[i] = Region{Name: r.Name, Stations: append([]Station(nil), r.Stations...)}
	}
	return out
}

// Stations returns the stations of one region, or nil if the region is unknown.
func Stations(regionName string) []Station {
	for _, r := range regions {
		if r.Name == regionName {
			return append([]Station(nil), r.Stations...)
		}
	}
	return nil
}

// Lookup finds a station by region and display name.
func Lookup(regionName, name string) (Station, error) {
	for _, s := range Stations(regionName) {
		if s.Name == name {
			return s, nil
		}
	}
	return Station{}, fmt.Errorf("%w: %s/%s", ErrUnknownStation, regionName, name)
}

// Find searches every region for a display name.
func Find(name string) (Station, error) {
	for _, r := range regions {
		for _, s := range r.Stations {
			if s.Name == name {
				return s, nil
			}
		}
	}
	return Station{}, fmt.Errorf("%w: %s", ErrUnknownStation, name)
}

// BySegment finds a station by its URL segment.
func BySegment(segment string) (Station, error) {
	for _, r := range regions {
		for _, s := range r.Stations {
			if s.Segment == segment {
				return s, nil
			}
		}
	}
	return Station{}, fmt.Errorf("%w: segment %s", ErrUnknownStation, segment)
}
