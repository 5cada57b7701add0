package scraper

import (
	"image"
	"math"
)

// matchTemplate slides the template across the target image and returns
// the offset with the highest normalized zero-mean cross-correlation
// score. Scores range from -1 to 1; 1 is an exact match. A template
// larger than the target scores 0 everywhere.
func matchTemplate(target, template image.Image) (bestX, bestY int, bestScore float64) {
	targetGray := grayValues(target)
	templateGray := grayValues(template)

	tw, th := len(templateGray[0]), len(templateGray)
	gw, gh := len(targetGray[0]), len(targetGray)
	if tw > gw || th > gh {
		return 0, 0, 0
	}

	templateMean := mean(templateGray)
	templateNorm := 0.0
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			diff := templateGray[y][x] - templateMean
			templateNorm += diff * diff
		}
	}
	templateNorm = math.Sqrt(templateNorm)

	bestScore = -1
	for offY := 0; offY <= gh-th; offY++ {
		for offX := 0; offX <= gw-tw; offX++ {
			score := windowScore(targetGray, templateGray, offX, offY, templateMean, templateNorm)
			if score > bestScore {
				bestScore = score
				bestX = offX
				bestY = offY
			}
		}
	}
	return bestX, bestY, bestScore
}

// windowScore computes the correlation coefficient of the template
// against one window of the target
func windowScore(target, template [][]float64, offX, offY int, templateMean, templateNorm float64) float64 {
	tw, th := len(template[0]), len(template)

	windowSum := 0.0
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			windowSum += target[offY+y][offX+x]
		}
	}
	windowMean := windowSum / float64(tw*th)

	numerator := 0.0
	windowNorm := 0.0
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			templateDiff := template[y][x] - templateMean
			windowDiff := target[offY+y][offX+x] - windowMean
			numerator += templateDiff * windowDiff
			windowNorm += windowDiff * windowDiff
		}
	}

	denominator := templateNorm * math.Sqrt(windowNorm)
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

// grayValues converts an image into a luminance matrix
func grayValues(img image.Image) [][]float64 {
	bounds := img.Bounds()
	values := make([][]float64, bounds.Dy())
	for y := 0; y < bounds.Dy(); y++ {
		row := make([]float64, bounds.Dx())
		for x := 0; x < bounds.Dx(); x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// ITU-R BT.601 luma on 16-bit channel values
			row[x] = (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 257.0
		}
		values[y] = row
	}
	return values
}

func mean(values [][]float64) float64 {
	sum := 0.0
	count := 0
	for _, row := range values {
		for _, v := range row {
			sum += v
			count++
		}
	}
	return sum / float64(count)
}
