package chat

// Bucket names a fixed product list.
type Bucket string

const (
	BucketEarly    Bucket = "early"
	BucketModerate Bucket = "moderate"
	BucketSevere   Bucket = "severe"
	BucketScalp    Bucket = "scalp"
)

var productBuckets = map[Bucket][]string{
	BucketEarly: {
		"HairLoss Doctor Serum 2.5 Neo",
		"HairLoss Doctor Biotin Complex Plus",
		"HairLoss Doctor Scalp Therapy Foam",
	},
	BucketModerate: {
		"HairLoss Doctor Advanced Formula 5.0",
		"HairLoss Doctor DHT Blocker Elite",
		"HairLoss Doctor Revitalizing Shampoo Pro",
	},
	BucketSevere: {
		"HairLoss Doctor Maximum Strength Solution 7.5",
		"HairLoss Doctor Nutrient Fusion Tablets",
		"PRP or Laser Therapy Program evaluation",
	},
	BucketScalp: {
		"HairLoss Doctor Clarifying Scalp Shampoo",
		"HairLoss Doctor Scalp Balance Tonic",
		"HairLoss Doctor Scalp Energizing Serum",
	},
}

var categoryBuckets = map[Category]Bucket{
	CategoryBaldness: BucketSevere,
	CategoryHairline: BucketEarly,
	CategoryCrown:    BucketModerate,
	CategoryDiffuse:  BucketModerate,
	CategoryDandruff: BucketScalp,
	CategoryOily:     BucketScalp,
}

// BucketFor returns the product bucket for a category. General has none.
func BucketFor(c Category) (Bucket, bool) {
	b, ok := categoryBuckets[c]
	return b, ok
}

// Products returns a copy of the bucket's product list.
func Products(b Bucket) []string {
	return append([]string(nil), productBuckets[b]...)
}
