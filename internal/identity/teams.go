package identity

// Team tables: venue code → full team name. Codes are the ones the venue
// embeds in market symbols.

var nbaTeams = map[string]string{
	"ATL": "Atlanta Hawks",
	"BOS": "Boston Celtics",
	"BKN": "Brooklyn Nets",
	"CHA": "Charlotte Hornets",
	"CHI": "Chicago Bulls",
	"CLE": "Cleveland Cavaliers",
	"DAL": "Dallas Mavericks",
	"DEN": "Denver Nuggets",
	"DET": "Detroit Pistons",
	"GSW": "Golden State Warriors",
	"HOU": "Houston Rockets",
	"IND": "Indiana Pacers",
	"LAC": "Los Angeles Clippers",
	"LAL": "Los Angeles Lakers",
	"MEM": "Memphis Grizzlies",
	"MIA": "Miami Heat",
	"MIL": "Milwaukee Bucks",
	"MIN": "Minnesota Timberwolves",
	"NOP": "New Orleans Pelicans",
	"NYK": "New York Knicks",
	"OKC": "Oklahoma City Thunder",
	"ORL": "Orlando Magic",
	"PHI": "Philadelphia 76ers",
	"PHX": "Phoenix Suns",
	"POR": "Portland Trail Blazers",
	"SAC": "Sacramento Kings",
	"SAS": "San Antonio Spurs",
	"TOR": "Toronto Raptors",
	"UTA": "Utah Jazz",
	"WAS": "Washington Wizards",
}

var nbaAliases = map[string]string{
	"GS":   "GSW",
	"NO":   "NOP",
	"NY":   "NYK",
	"SA":   "SAS",
	"PHO":  "PHX",
	"BRK":  "BKN",
	"CHO":  "CHA",
	"UTAH": "UTA",
	"WSH":  "WAS",
}

var nflTeams = map[string]string{
	"ARI": "Arizona Cardinals",
	"ATL": "Atlanta Falcons",
	"BAL": "Baltimore Ravens",
	"BUF": "Buffalo Bills",
	"CAR": "Carolina Panthers",
	"CHI": "Chicago Bears",
	"CIN": "Cincinnati Bengals",
	"CLE": "Cleveland Browns",
	"DAL": "Dallas Cowboys",
	"DEN": "Denver Broncos",
	"DET": "Detroit Lions",
	"GB":  "Green Bay Packers",
	"HOU": "Houston Texans",
	"IND": "Indianapolis Colts",
	"JAX": "Jacksonville Jaguars",
	"KC":  "Kansas City Chiefs",
	"LAC": "Los Angeles Chargers",
	"LAR": "Los Angeles Rams",
	"LV":  "Las Vegas Raiders",
	"MIA": "Miami Dolphins",
	"MIN": "Minnesota Vikings",
	"NE":  "New England Patriots",
	"NO":  "New Orleans Saints",
	"NYG": "New York Giants",
	"NYJ": "New York Jets",
	"PHI": "Philadelphia Eagles",
	"PIT": "Pittsburgh Steelers",
	"SEA": "Seattle Seahawks",
	"SF":  "San Francisco 49ers",
	"TB":  "Tampa Bay Buccaneers",
	"TEN": "Tennessee Titans",
	"WAS": "Washington Commanders",
}

// "LA" alone collides between the Rams and the Chargers; the venue uses it
// for the Rams.
var nflAliases = map[string]string{
	"JAC": "JAX",
	"LA":  "LAR",
	"WSH": "WAS",
	"GNB": "GB",
	"KAN": "KC",
	"NWE": "NE",
	"NOR": "NO",
	"SFO": "SF",
	"TAM": "TB",
}

var mlbTeams = map[string]string{
	"ARI": "Arizona Diamondbacks",
	"ATH": "Athletics",
	"ATL": "Atlanta Braves",
	"BAL": "Baltimore Orioles",
	"BOS": "Boston Red Sox",
	"CHC": "Chicago Cubs",
	"CIN": "Cincinnati Reds",
	"CLE": "Cleveland Guardians",
	"COL": "Colorado Rockies",
	"CWS": "Chicago White Sox",
	"DET": "Detroit Tigers",
	"HOU": "Houston Astros",
	"KC":  "Kansas City Royals",
	"LAA": "Los Angeles Angels",
	"LAD": "Los Angeles Dodgers",
	"MIA": "Miami Marlins",
	"MIL": "Milwaukee Brewers",
	"MIN": "Minnesota Twins",
	"NYM": "New York Mets",
	"NYY": "New York Yankees",
	"PHI": "Philadelphia Phillies",
	"PIT": "Pittsburgh Pirates",
	"SD":  "San Diego Padres",
	"SEA": "Seattle Mariners",
	"SF":  "San Francisco Giants",
	"STL": "St. Louis Cardinals",
	"TB":  "Tampa Bay Rays",
	"TEX": "Texas Rangers",
	"TOR": "Toronto Blue Jays",
	"WSH": "Washington Nationals",
}

var mlbAliases = map[string]string{
	"AZ":  "ARI",
	"CHW": "CWS",
	"OAK": "ATH",
	"KCR": "KC",
	"SDP": "SD",
	"SFG": "SF",
	"TBR": "TB",
	"WAS": "WSH",
	"WSN": "WSH",
}

var nhlTeams = map[string]string{
	"ANA": "Anaheim Ducks",
	"BOS": "Boston Bruins",
	"BUF": "Buffalo Sabres",
	"CAR": "Carolina Hurricanes",
	"CBJ": "Columbus Blue Jackets",
	"CGY": "Calgary Flames",
	"CHI": "Chicago Blackhawks",
	"COL": "Colorado Avalanche",
	"DAL": "Dallas Stars",
	"DET": "Detroit Red Wings",
	"EDM": "Edmonton Oilers",
	"FLA": "Florida Panthers",
	"LA":  "Los Angeles Kings",
	"MIN": "Minnesota Wild",
	"MTL": "Montreal Canadiens",
	"NJ":  "New Jersey Devils",
	"NSH": "Nashville Predators",
	"NYI": "New York Islanders",
	"NYR": "New York Rangers",
	"OTT": "Ottawa Senators",
	"PHI": "Philadelphia Flyers",
	"PIT": "Pittsburgh Penguins",
	"SEA": "Seattle Kraken",
	"SJ":  "San Jose Sharks",
	"STL": "St. Louis Blues",
	"TB":  "Tampa Bay Lightning",
	"TOR": "Toronto Maple Leafs",
	"UTA": "Utah Mammoth",
	"VAN": "Vancouver Canucks",
	"VGK": "Vegas Golden Knights",
	"WPG": "Winnipeg Jets",
	"WSH": "Washington Capitals",
}

var nhlAliases = map[string]string{
	"LAK":  "LA",
	"NJD":  "NJ",
	"SJS":  "SJ",
	"TBL":  "TB",
	"VEG":  "VGK",
	"MON":  "MTL",
	"NAS":  "NSH",
	"WAS":  "WSH",
	"UTAH": "UTA",
}
