package registry

// Aave v3 pool contracts per EVM chain id.
var aavePoolByChainID = map[int64]string{
	1:     "0x87870Bca3F3fD6335C3F4ce8392D69350B4fA4E2",
	8453:  "0xA238Dd80C259a72e81d7e4664a9801593F98d1c5",
	42161: "0x794a61358D6845594F94dc1DB02A252b5b4814aD",
	10:    "0x794a61358D6845594F94dc1DB02A252b5b4814aD",
	137:   "0x794a61358D6845594F94dc1DB02A252b5b4814aD",
	43114: "0x794a61358D6845594F94dc1DB02A252b5b4814aD",
}

func AavePool(chainID int64) (string, bool) {
	v, ok := aavePoolByChainID[chainID]
	return v, ok
}
