/*
Package glm implements procedures for fitting generalized linear models (GLM) in Go (golang).

The data are provided to the models as column-oriented statmodel.Dataset values.
Models are fit by iteratively reweighted least squares (IRLS), or by
gradient optimization when a ridge penalty is present.  LogisticRegression
wraps the binomial GLM as a penalized binary classifier.
*/
package glm
