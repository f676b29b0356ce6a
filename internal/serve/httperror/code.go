package httperror

const (
	Code400_0 = "400_0" // Invalid request body.
	Code400_1 = "400_1" // Invalid query parameters.
	Code401_0 = "401_0" // Not authorized.
	Code403_0 = "403_0" // The credentials belong to a different studio.
	Code404_0 = "404_0" // No studio is served on this host.
	Code409_0 = "409_0" // The hostname is already bound to a studio.
	Code409_1 = "409_1" // The subdomain is already taken.
	Code422_0 = "422_0" // The studio plan does not include the feature.
	Code429_0 = "429_0" // Too many requests.
	Code500_0 = "500_0" // An internal error occurred while processing this request.
)
