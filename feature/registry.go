package feature

// StandardFeatures returns one instance of every known feature, in
// registration order. Callers
// bind a subset of these onto each TypeInfo via types.TypeInfo.AddFeature.
func StandardFeatures() []Feature {
	return []Feature{
		NewNameFeature(),
		NewNameAltFeature(),
		NewNameShortFeature(),
		NewRefFeature(),
		NewAddressFeature(),
		NewLocationFeature(),
		NewPostalCodeFeature(),
		NewAdminLevelFeature(),
		NewAccessFeature(),
		NewAccessRestrictedFeature(),
		NewLayerFeature(),
		NewWidthFeature(),
		NewMaxSpeedFeature(),
		NewGradeFeature(),
		NewBridgeFeature(),
		NewTunnelFeature(),
		NewRoundaboutFeature(),
		NewEmbankmentFeature(),
		NewLanesFeature(),
		NewSidewayFeature(),
		NewConstructionYearFeature(),
		NewOpeningHoursFeature(),
		NewFeeFeature(),
		NewMaxStayFeature(),
		NewChargingStationFeature(),
		NewBrandFeature(),
		NewOperatorFeature(),
		NewNetworkFeature(),
		NewPhoneFeature(),
		NewWebsiteFeature(),
		NewDestinationFeature(),
		NewFromFeature(),
		NewToFeature(),
		NewClockwiseFeature(),
		NewIsInFeature(),
	}
}
