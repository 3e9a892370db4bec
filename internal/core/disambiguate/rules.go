package disambiguate

// HistoricalRules is a curated subset of the hand-tuned by_member_id
// disambiguation table accumulated over the project's history — members
// who share a surname-only alias, disambiguated by the years (or house)
// they actually sat. Ported from the retrieved disambiguation module; this
// is a representative sample of the full table, not its entirety.
func HistoricalRules() map[int]Rule {
	return map[int]Rule{
		// mr macaulay
		2572: Always(),
		// mr bruce
		4253: HouseIs(HouseCommons),
		6881: HouseIs(HouseLords),
		// mr odonnell
		5521: Before(1886, 1, 1),
		7973: After(1900, 1, 1),
		// mr curzon
		6317: Always(),
		// mr j lowther
		4967: After(1865, 1, 1),
		// mr warburton
		2880: Before(1848, 1, 1),
		// mr lyttelton
		1492: Before(1821, 1, 1),
		5231: After(1896, 1, 1),
		// mr mclaren
		4853: Before(1881, 1, 1),
		5830: After(1881, 1, 1),
		// mr liddell
		8168: After(1903, 1, 1),
		2527: Or(And(HouseIs(HouseCommons), Before(1856, 1, 1)), HouseIs(HouseLords)),
		4264: And(HouseIs(HouseCommons), After(1856, 1, 1), Before(1873, 12, 31)),
		// mr anderson
		4295: And(After(1869, 1, 1), Before(1884, 12, 31)),
		// mr hunt
		2712: And(After(1831, 1, 1), Before(1832, 12, 31)),
		6106: And(After(1886, 1, 1), Before(1892, 12, 31)),
		// mr illingworth
		5137: Before(1892, 12, 31),
		8316: After(1908, 1, 1),
		// mr balfour
		2523: And(After(1831, 1, 1), Before(1832, 1, 1)),
		5410: And(After(1874, 1, 1), Before(1911, 1, 1)),
		// mr wotley
		3339: Before(1859, 12, 31),
		5829: After(1889, 1, 1),
		// Mr. Stanley
		1021: And(After(1810, 12, 31), Before(1812, 1, 1)),
		5863: And(After(1888, 1, 1), Before(1906, 12, 31)),
		7892: After(1906, 1, 1),
		2326: And(After(1821, 1, 1), Before(1843, 12, 31)),
		4079: And(After(1855, 1, 1), Before(1864, 12, 31)),
		// Mr. Gregory
		3783: Before(1872, 12, 31),
		5210: After(1873, 1, 1),
		// Mr Hobhouse
		3229: And(After(1819, 1, 1), Before(1851, 12, 31)),
		7539: After(1900, 1, 1),
		// Mr. Shaw Lefevre
		1030: Before(1820, 1, 1),
		4783: After(1880, 1, 1),
		// Mr. Whitbread
		7619: After(1906, 1, 1),
		624:  And(After(1804, 1, 1), Before(1815, 12, 31)),
		2852: And(After(1818, 1, 1), Before(1820, 12, 31)),
		// Mr. Ward
		8340: After(1900, 1, 1),
		758:  And(After(1803, 1, 1), Before(1823, 12, 31)),
		2406: And(After(1826, 1, 1), Before(1831, 12, 31)),
		3175: And(After(1832, 1, 1), Before(1849, 12, 31)),
		// Mr. Childers
		2894: Before(1842, 12, 31),
		4705: After(1863, 1, 1),
		// Mr. Villiers
		6580: HouseIs(HouseLords),
		1097: And(After(1808, 1, 1), Before(1811, 12, 31)),
		3415: And(After(1835, 1, 1), Before(1885, 12, 31)),
		8132: After(1905, 1, 1),
		// Mr. W. Williams
		2937: Or(Year(1837), Year(1834), Within(1836, 1839, true)),
		3313: And(After(1850, 1, 1), Before(1865, 1, 1)),
		// Mr. Wynn
		1610: Year(1809),
		3101: Or(Year(1812), Within(1822, 1826, true), Year(1831), Year(1833), Year(1835), Year(1841)),
		2398: Within(1826, 1830, true),
		3658: Within(1842, 1845, true),
		4758: After(1868, 1, 1),
		// Mr. Morton
		6397: Within(1890, 1910, true),
		// Mr. Pease
		2966: Within(1833, 1839, true),
		4572: Within(1857, 1865, true),
		4851: Within(1866, 1882, true),
		7390: Within(1896, 1910, true),
	}
}
