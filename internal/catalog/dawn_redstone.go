package catalog

import "time"

func hm(h, m int) int { return h*60 + m }

// dawnRedstone: the location cycles through five realms by day of month
// (1,6,11,... / 2,7,12,... / ...), and the weekday picks the area within
// the realm. Slots run on Sundays, on Saturdays in the first half of the
// month and on Fridays in the second half.
var dawnRedstone = &Catalog{
	name:   DawnRedstoneName,
	groups: 5,
	locations: map[locationKey]string{
		{0, time.Friday}:   "暮土-黑水港湾",
		{0, time.Saturday}: "暮土-巨兽荒原",
		{0, time.Sunday}:   "暮土-失落方舟",

		{1, time.Friday}:   "禁阁-星漠海滩",
		{1, time.Saturday}: "禁阁-星漠海滩",
		{1, time.Sunday}:   "禁阁-星漠海滩",

		{2, time.Friday}:   "云野-云顶浮石",
		{2, time.Saturday}: "云野-幽光山洞",
		{2, time.Sunday}:   "云野-圣岛",

		{3, time.Friday}:   "雨林-大树屋",
		{3, time.Saturday}: "雨林-雨林神庙",
		{3, time.Sunday}:   "雨林-秘密花园",

		{4, time.Friday}:   "霞谷-圆梦村",
		{4, time.Saturday}: "霞谷-圆梦村",
		{4, time.Sunday}:   "霞谷-雪隐峰",
	},
	rules: []slotRule{
		{
			weekday: time.Sunday, fromDay: 1, toDay: 31,
			windows: []window{{hm(7, 8), hm(8, 0)}, {hm(13, 8), hm(14, 0)}, {hm(19, 8), hm(20, 0)}},
		},
		{
			weekday: time.Saturday, fromDay: 1, toDay: 15,
			windows: []window{{hm(10, 8), hm(11, 0)}, {hm(14, 8), hm(15, 0)}, {hm(22, 8), hm(23, 0)}},
		},
		{
			weekday: time.Friday, fromDay: 16, toDay: 31,
			windows: []window{{hm(11, 8), hm(12, 0)}, {hm(17, 8), hm(18, 0)}, {hm(23, 8), hm(24, 0)}},
		},
	},
}
